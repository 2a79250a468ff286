// Package service implements the catalog commit pipeline: validate, resolve media, persist.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/abgdnv/catalogsync/internal/idgen"
	"github.com/abgdnv/catalogsync/internal/media"
	"github.com/abgdnv/catalogsync/internal/store"
	"github.com/abgdnv/catalogsync/pkg/messaging"
	"github.com/abgdnv/catalogsync/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CatalogService defines the operations on the local catalog.
type CatalogService interface {
	// Create validates the draft, uploads its local image and persists a new product under a fresh id.
	// Returns a ValidationError, UploadError or StorageError; nothing is persisted on failure.
	Create(ctx context.Context, draft DraftDto) (*ProductDto, error)

	// Update replaces the product with the given id by the draft. The id never changes.
	// Returns ErrProductNotFound if no product exists with the given id.
	Update(ctx context.Context, id string, draft DraftDto) (*ProductDto, error)

	// FindAll returns a snapshot of the healthy products. Corrupt records are omitted.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindCorrupt returns the stored records that could not be read as products.
	FindCorrupt(ctx context.Context) ([]CorruptRecordDto, error)

	// DeleteByID removes a product. Deleting a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
}

// MediaUploader resolves a local media handle into a remote reference.
type MediaUploader interface {
	Upload(ctx context.Context, handle string) (media.Ref, error)
	Discard(ctx context.Context, ref media.Ref) error
}

// DraftDto is the user input for a create or update. Price is raw text as typed.
type DraftDto struct {
	Title       string `json:"title" validate:"required"`
	Price       string `json:"price" validate:"required,price"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	Image       string `json:"image" validate:"required"`
}

// ProductDto is a committed product.
type ProductDto struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
}

// CorruptRecordDto names a stored key that failed to decode and why.
type CorruptRecordDto struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Service implements CatalogService. It is the only writer of finalized product records.
type Service struct {
	store        store.CatalogStore
	uploader     MediaUploader
	ids          idgen.Generator
	publisher    messaging.Publisher
	validate     *validator.Validate
	storeTimeout time.Duration
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

func NewService(catalog store.CatalogStore, uploader MediaUploader, ids idgen.Generator, publisher messaging.Publisher,
	storeTimeout time.Duration, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Service{
		store:        catalog,
		uploader:     uploader,
		ids:          ids,
		publisher:    publisher,
		validate:     newValidator(),
		storeTimeout: storeTimeout,
		logger:       logger.With("component", "catalog"),
		tracer:       otel.Tracer("catalogsync/service"),
		now:          time.Now,
	}
}

func (s *Service) Create(ctx context.Context, draft DraftDto) (*ProductDto, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Create")
	defer span.End()

	draft, price, err := s.check(draft)
	if err != nil {
		return nil, s.fail(ctx, span, "draft rejected", err)
	}
	return s.commit(ctx, span, s.ids.NewID(), draft, price, events.CommitCreated)
}

func (s *Service) Update(ctx context.Context, id string, draft DraftDto) (*ProductDto, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Update", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	draft, price, err := s.check(draft)
	if err != nil {
		return nil, s.fail(ctx, span, "draft rejected", err)
	}

	sctx, cancel := s.bounded(ctx)
	existing, err := s.store.Get(sctx, id)
	cancel()
	if err != nil {
		return nil, s.fail(ctx, span, "failed to load product for update", err)
	}
	return s.commit(ctx, span, existing.ID, draft, price, events.CommitUpdated)
}

func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	products, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list products", "error", err)
		return nil, err
	}
	dtos := make([]ProductDto, len(products))
	for i, p := range products {
		dtos[i] = toDto(p)
	}
	return dtos, nil
}

func (s *Service) FindCorrupt(ctx context.Context) ([]CorruptRecordDto, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	records, err := s.store.Scan(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to scan catalog", "error", err)
		return nil, err
	}
	corrupt := make([]CorruptRecordDto, 0)
	for _, r := range records {
		if !r.OK() {
			corrupt = append(corrupt, CorruptRecordDto{Key: r.Key, Reason: r.Corrupt.Error()})
		}
	}
	return corrupt, nil
}

func (s *Service) DeleteByID(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Delete", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	sctx, cancel := s.bounded(ctx)
	err := s.store.Delete(sctx, id)
	cancel()
	if err != nil {
		return s.fail(ctx, span, "failed to delete product", err)
	}
	s.publish(ctx, events.ProductDeletedEvent{ProductID: id, DeletedAt: s.now().UTC()})
	return nil
}

// check normalizes the draft and validates it before any I/O.
func (s *Service) check(draft DraftDto) (DraftDto, float64, error) {
	draft = DraftDto{
		Title:       strings.TrimSpace(draft.Title),
		Price:       strings.TrimSpace(draft.Price),
		Description: strings.TrimSpace(draft.Description),
		Category:    strings.TrimSpace(draft.Category),
		Image:       strings.TrimSpace(draft.Image),
	}
	if err := s.validate.Struct(draft); err != nil {
		return draft, 0, toValidationError(err)
	}
	price, _ := parsePrice(draft.Price)
	return draft, price, nil
}

// commit resolves media and persists. An object uploaded by this commit is discarded if the persist fails.
func (s *Service) commit(ctx context.Context, span trace.Span, id string, draft DraftDto, price float64,
	kind events.CommitKind) (*ProductDto, error) {
	span.SetAttributes(attribute.String("product.id", id))

	imageRef := draft.Image
	var uploaded *media.Ref
	if !media.IsRemoteRef(imageRef) {
		ref, err := s.uploader.Upload(ctx, imageRef)
		if err != nil {
			return nil, s.fail(ctx, span, "media upload failed", err)
		}
		uploaded = &ref
		imageRef = ref.URL
	}

	product := store.Product{
		ID:          id,
		Title:       draft.Title,
		Price:       price,
		Description: draft.Description,
		ImageRef:    imageRef,
		Category:    draft.Category,
	}
	sctx, cancel := s.bounded(ctx)
	err := s.store.Put(sctx, product)
	cancel()
	if err != nil {
		if uploaded != nil {
			s.discard(ctx, *uploaded)
		}
		return nil, s.fail(ctx, span, "failed to persist product", err)
	}

	s.logger.InfoContext(ctx, "product committed", "id", id, "kind", kind, "uploaded", uploaded != nil)
	s.publish(ctx, events.ProductCommittedEvent{
		ProductID:   id,
		Kind:        kind,
		ImageURL:    imageRef,
		CommittedAt: s.now().UTC(),
	})
	dto := toDto(product)
	return &dto, nil
}

// discard deletes an object left behind by a failed persist. Object keys come from the handle
// name, so the upload may have overwritten an object a stored product still references; such an
// object is kept. It is also kept when the products cannot be listed.
func (s *Service) discard(ctx context.Context, ref media.Ref) {
	ctx = context.WithoutCancel(ctx)
	lctx, cancel := s.bounded(ctx)
	products, err := s.store.ListAll(lctx)
	cancel()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check media usage, keeping it", "key", ref.Key, "error", err)
		return
	}
	if slices.ContainsFunc(products, func(p store.Product) bool { return p.ImageRef == ref.URL }) {
		s.logger.WarnContext(ctx, "uploaded media is shared with a stored product, keeping it", "key", ref.Key)
		return
	}
	if err := s.uploader.Discard(ctx, ref); err != nil {
		s.logger.ErrorContext(ctx, "failed to discard orphaned media", "key", ref.Key, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish catalog event", "subject", event.Subject(), "error", err)
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if errors.Is(err, catalogerrors.ErrValidation) || errors.Is(err, catalogerrors.ErrProductNotFound) {
		s.logger.WarnContext(ctx, msg, "error", err)
	} else {
		s.logger.ErrorContext(ctx, msg, "error", err)
	}
	return err
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func toDto(p store.Product) ProductDto {
	return ProductDto{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.ImageRef,
	}
}
