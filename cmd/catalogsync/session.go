package main

import (
	"context"
	"errors"

	"github.com/abgdnv/catalogsync/internal/app"
	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/abgdnv/catalogsync/internal/session"
	"github.com/spf13/cobra"
)

type credentials struct {
	email    string
	password string
}

func credentialFlags(cmd *cobra.Command, c *credentials) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}

func newSignInCmd(opts *rootOptions) *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return authenticate(cmd, opts, func(ctx context.Context, gate session.Gate) (*session.Session, error) {
				return gate.SignIn(ctx, c.email, c.password)
			})
		},
	}
	credentialFlags(cmd, &c)
	return cmd
}

func newSignUpCmd(opts *rootOptions) *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return authenticate(cmd, opts, func(ctx context.Context, gate session.Gate) (*session.Session, error) {
				return gate.SignUp(ctx, c.email, c.password)
			})
		},
	}
	credentialFlags(cmd, &c)
	return cmd
}

func authenticate(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, session.Gate) (*session.Session, error)) error {
	return withDependencies(cmd, opts, func(ctx context.Context, deps *app.Dependencies) error {
		s, err := fn(ctx, deps.Gate)
		if err != nil {
			var authErr *catalogerrors.AuthError
			if errors.As(err, &authErr) {
				return errors.New(catalogerrors.AuthMessage(authErr.Kind))
			}
			return err
		}
		return printJSON(cmd, s)
	})
}
