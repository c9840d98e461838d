package event

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MetadataBuilder renders a product's provenance document
type MetadataBuilder interface {
	BuildMetadata(ctx context.Context, productID uint64) ([]byte, error)
}

// ObjectUploader writes an object to storage
type ObjectUploader interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// ProvenanceArchiver stores the provenance document of each assembled product
type ProvenanceArchiver struct {
	builder  MetadataBuilder
	uploader ObjectUploader
	prefix   string
	logger   *zap.Logger
}

// NewProvenanceArchiver creates an archiver writing under prefix
func NewProvenanceArchiver(builder MetadataBuilder, uploader ObjectUploader, prefix string, logger *zap.Logger) *ProvenanceArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "provenance"
	}
	return &ProvenanceArchiver{
		builder:  builder,
		uploader: uploader,
		prefix:   prefix,
		logger:   logger,
	}
}

// EventTypes returns the product assembly event
func (a *ProvenanceArchiver) EventTypes() []string {
	return []string{product.EventTypeProductAssembled}
}

// Handle uploads the product's metadata as JSON
func (a *ProvenanceArchiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	assembled, ok := event.(*product.ProductAssembledEvent)
	if !ok {
		return fmt.Errorf("provenance archiver: unexpected event %T", event)
	}

	data, err := a.builder.BuildMetadata(ctx, assembled.ProductID)
	if err != nil {
		return fmt.Errorf("build metadata for product %d: %w", assembled.ProductID, err)
	}

	key := a.ObjectKey(assembled.ProductID)
	if err := a.uploader.Upload(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("archive product %d: %w", assembled.ProductID, err)
	}

	a.logger.Info("provenance archived",
		zap.Uint64("product_id", assembled.ProductID),
		zap.String("key", key),
	)
	return nil
}

// ObjectKey returns the storage key for a product's document
func (a *ProvenanceArchiver) ObjectKey(productID uint64) string {
	return path.Join(a.prefix, strconv.FormatUint(productID, 10)+".json")
}

var _ shared.EventHandler = (*ProvenanceArchiver)(nil)
