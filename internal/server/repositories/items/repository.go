package items

import (
	"context"

	"github.com/dmitrijs2005/itemsapi/internal/server/models"
)

// Repository persists items. Lookups of absent items return common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error)
	Update(ctx context.Context, item *models.Item) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
	SetAttachmentKey(ctx context.Context, id int64, key string) error
}
