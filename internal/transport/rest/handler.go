// Package rest exposes the catalog, browsing list and session over a local HTTP API.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/abgdnv/catalogsync/internal/feed"
	"github.com/abgdnv/catalogsync/internal/service"
	"github.com/abgdnv/catalogsync/internal/session"
	"github.com/abgdnv/catalogsync/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Browser is the remote browsing list of one session.
type Browser interface {
	Refresh(ctx context.Context) (bool, error)
	LoadMore(ctx context.Context) (bool, error)
	Delete(ctx context.Context, id int) error
	Snapshot() feed.Snapshot
}

type Handler struct {
	catalog  service.CatalogService
	browser  Browser
	gate     session.Gate
	validate *validator.Validate
	logger   *slog.Logger
}

type CredentialsDto struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func NewHandler(catalog service.CatalogService, browser Browser, gate session.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		browser:  browser,
		gate:     gate,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes. Catalog and browse routes require a session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.gate, h.logger))

		r.Route("/api/v1/products", func(r chi.Router) {
			r.Get("/", h.FindAll)
			r.Post("/", h.Create)
			r.Get("/corrupt", h.FindCorrupt)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.DeleteByID)
		})

		r.Route("/api/v1/browse", func(r chi.Router) {
			r.Get("/", h.Browse)
			r.Post("/first", h.LoadFirst)
			r.Post("/more", h.LoadMore)
			r.Delete("/{id}", h.DeleteRemote)
		})
	})

	r.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", h.CurrentSession)
		r.Post("/signin", h.SignIn)
		r.Post("/signup", h.SignUp)
		r.Post("/signout", h.SignOut)
	})

	r.Get("/healthz", h.HealthCheck)
}

func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.FindAll(r.Context())
	if err != nil {
		h.respondErr(w, r, "Failed to fetch products", err)
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

func (h *Handler) FindCorrupt(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.FindCorrupt(r.Context())
	if err != nil {
		h.respondErr(w, r, "Failed to scan products", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var draft service.DraftDto
	if !web.DecodeJSON(w, r, h.logger, &draft) {
		return
	}
	created, err := h.catalog.Create(r.Context(), draft)
	if err != nil {
		h.respondErr(w, r, "Failed to create product", err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Title", created.Title)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(w, r, h.logger)
	if !ok {
		return
	}
	var draft service.DraftDto
	if !web.DecodeJSON(w, r, h.logger, &draft) {
		return
	}
	updated, err := h.catalog.Update(r.Context(), id, draft)
	if err != nil {
		h.respondErr(w, r, fmt.Sprintf("Failed to update product with ID %s", id), err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.catalog.DeleteByID(r.Context(), id); err != nil {
		h.respondErr(w, r, fmt.Sprintf("Failed to delete product with ID %s", id), err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Browse(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.browser.Snapshot())
}

// LoadFirst starts a new browsing session from page 1. The current list stays if the fetch fails.
func (h *Handler) LoadFirst(w http.ResponseWriter, r *http.Request) {
	if _, err := h.browser.Refresh(r.Context()); err != nil {
		h.respondErr(w, r, "Failed to load products", err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.browser.Snapshot())
}

func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	issued, err := h.browser.LoadMore(r.Context())
	if err != nil {
		h.respondErr(w, r, "Failed to load more products", err)
		return
	}
	if !issued {
		h.logger.DebugContext(r.Context(), "Load more dropped")
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.browser.Snapshot())
}

func (h *Handler) DeleteRemote(w http.ResponseWriter, r *http.Request) {
	raw, ok := web.PathID(w, r, h.logger)
	if !ok {
		return
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, fmt.Sprintf("Invalid ID: %q", raw))
		return
	}
	if err := h.browser.Delete(r.Context(), id); err != nil {
		h.respondErr(w, r, fmt.Sprintf("Failed to delete remote product with ID %d", id), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.gate.CurrentSession(r.Context())
	if !ok {
		web.RespondError(w, h.logger, http.StatusUnauthorized, "No active session")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, s)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.gate.SignIn, http.StatusOK)
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.gate.SignUp, http.StatusCreated)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.SignOut(r.Context()); err != nil {
		h.respondErr(w, r, "Failed to sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, email, password string) (*session.Session, error), status int) {
	var creds CredentialsDto
	if !web.DecodeJSON(w, r, h.logger, &creds) {
		return
	}
	if err := h.validate.Struct(creds); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return
		}
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	s, err := op(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.respondErr(w, r, "Authentication failed", err)
		return
	}
	web.RespondJSON(w, h.logger, status, s)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// respondErr maps the error taxonomy onto HTTP statuses.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	var vErr *catalogerrors.ValidationError
	var authErr *catalogerrors.AuthError
	switch {
	case errors.As(err, &vErr):
		h.logger.WarnContext(ctx, msg, "error", err)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]string{
			"error": vErr.Error(),
			"field": vErr.Field,
			"kind":  string(vErr.Kind),
		})
	case errors.Is(err, catalogerrors.ErrProductNotFound):
		h.logger.WarnContext(ctx, msg, "error", err)
		web.RespondError(w, h.logger, http.StatusNotFound, "Product not found")
	case errors.As(err, &authErr):
		h.logger.WarnContext(ctx, msg, "kind", authErr.Kind)
		web.RespondJSON(w, h.logger, http.StatusUnauthorized, map[string]string{
			"error": catalogerrors.AuthMessage(authErr.Kind),
			"kind":  string(authErr.Kind),
		})
	case errors.Is(err, catalogerrors.ErrTimeout):
		h.logger.ErrorContext(ctx, msg, "error", err)
		web.RespondError(w, h.logger, http.StatusGatewayTimeout, msg+": timed out")
	case errors.Is(err, catalogerrors.ErrUpload), errors.Is(err, catalogerrors.ErrNetwork):
		h.logger.ErrorContext(ctx, msg, "error", err)
		web.RespondError(w, h.logger, http.StatusBadGateway, msg)
	default:
		h.logger.ErrorContext(ctx, msg, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, msg)
	}
}
