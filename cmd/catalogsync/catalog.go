package main

import (
	"context"

	"github.com/abgdnv/catalogsync/internal/app"
	"github.com/abgdnv/catalogsync/internal/service"
	"github.com/spf13/cobra"
)

func draftFlags(cmd *cobra.Command, draft *service.DraftDto) {
	cmd.Flags().StringVar(&draft.Title, "title", "", "product title")
	cmd.Flags().StringVar(&draft.Price, "price", "", "price as a decimal number, e.g. 19.99")
	cmd.Flags().StringVar(&draft.Description, "description", "", "product description")
	cmd.Flags().StringVar(&draft.Category, "category", "", "product category")
	cmd.Flags().StringVar(&draft.Image, "image", "", "local image file or an already uploaded image URL")
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var draft service.DraftDto
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product in the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDependencies(cmd, opts, func(ctx context.Context, deps *app.Dependencies) error {
				product, err := deps.Catalog.Create(ctx, draft)
				if err != nil {
					return err
				}
				return printJSON(cmd, product)
			})
		},
	}
	draftFlags(cmd, &draft)
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var draft service.DraftDto
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a product in the local catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd, opts, func(ctx context.Context, deps *app.Dependencies) error {
				product, err := deps.Catalog.Update(ctx, args[0], draft)
				if err != nil {
					return err
				}
				return printJSON(cmd, product)
			})
		},
	}
	draftFlags(cmd, &draft)
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var corrupt bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDependencies(cmd, opts, func(ctx context.Context, deps *app.Dependencies) error {
				if corrupt {
					records, err := deps.Catalog.FindCorrupt(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd, records)
				}
				products, err := deps.Catalog.FindAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, products)
			})
		},
	}
	cmd.Flags().BoolVar(&corrupt, "corrupt", false, "list the records that could not be read instead")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product from the local catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd, opts, func(ctx context.Context, deps *app.Dependencies) error {
				return deps.Catalog.DeleteByID(ctx, args[0])
			})
		},
	}
}
