package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/dbx"
	"github.com/dmitrijs2005/itemsapi/internal/server/auth"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/dmitrijs2005/itemsapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/itemsapi/internal/server/storage"
)

// ErrAttachmentsDisabled is returned when no object storage is configured.
var ErrAttachmentsDisabled = errors.New("attachments are disabled")

// AttachmentStore presigns object-storage requests.
type AttachmentStore interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// CreateItemInput is a new item; the owner is always the caller.
type CreateItemInput struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description *string  `json:"description" validate:"omitnil,max=10000"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
}

// UpdateItemInput is a partial item update; nil fields are left untouched.
type UpdateItemInput struct {
	Title       *string  `json:"title" validate:"omitnil,min=1,max=255"`
	Description *string  `json:"description" validate:"omitnil,max=10000"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
}

// ItemService implements item CRUD. Every mutation goes through the
// ownership guard; reads are public.
type ItemService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	attachments AttachmentStore
}

// NewItemService constructs an ItemService. attachments may be nil, which
// disables the attachment operations.
func NewItemService(db *sql.DB, m repomanager.RepositoryManager, attachments AttachmentStore) *ItemService {
	return &ItemService{
		db:          db,
		repomanager: m,
		attachments: attachments,
	}
}

func (s *ItemService) Create(ctx context.Context, caller *models.Identity, in CreateItemInput) (*models.Item, error) {
	if caller == nil {
		return nil, common.ErrorUnauthorized
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	item, err := s.repomanager.Items(s.db).Create(ctx, &models.Item{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		OwnerID:     caller.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating item: %w", err)
	}
	return item, nil
}

func (s *ItemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	return s.repomanager.Items(s.db).Get(ctx, id)
}

// List returns a page of items, restricted to ownerID when it is not nil.
func (s *ItemService) List(ctx context.Context, page Page, ownerID *int64) ([]*models.Item, error) {
	return s.repomanager.Items(s.db).List(ctx, models.ItemFilter{Skip: page.Skip, Limit: page.Limit, OwnerID: ownerID})
}

// mutate loads item id inside a transaction, checks that caller owns it and
// hands it to fn. A missing item is reported before a foreign one.
func (s *ItemService) mutate(ctx context.Context, caller *models.Identity, id int64, fn func(ctx context.Context, tx dbx.DBTX, item *models.Item) error) (*models.Item, error) {
	var result *models.Item
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		item, err := s.repomanager.Items(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.RequireOwner(caller, item.OwnerID); err != nil {
			return err
		}
		if err := fn(ctx, tx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ItemService) Update(ctx context.Context, caller *models.Identity, id int64, in UpdateItemInput) (*models.Item, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	return s.mutate(ctx, caller, id, func(ctx context.Context, tx dbx.DBTX, item *models.Item) error {
		if in.Title != nil {
			item.Title = *in.Title
		}
		if in.Description != nil {
			item.Description = in.Description
		}
		if in.Price != nil {
			item.Price = in.Price
		}
		_, err := s.repomanager.Items(tx).Update(ctx, item)
		return err
	})
}

// Delete removes item id on behalf of caller and returns it.
func (s *ItemService) Delete(ctx context.Context, caller *models.Identity, id int64) (*models.Item, error) {
	return s.mutate(ctx, caller, id, func(ctx context.Context, tx dbx.DBTX, item *models.Item) error {
		return s.repomanager.Items(tx).Delete(ctx, item.ID)
	})
}

// CreateAttachmentUpload assigns a fresh storage key to item id and returns
// a presigned URL the owner can PUT the attachment to. A previous attachment
// is replaced.
func (s *ItemService) CreateAttachmentUpload(ctx context.Context, caller *models.Identity, id int64) (*models.AttachmentUpload, error) {
	if s.attachments == nil {
		return nil, ErrAttachmentsDisabled
	}

	var key, url string
	_, err := s.mutate(ctx, caller, id, func(ctx context.Context, tx dbx.DBTX, item *models.Item) error {
		key = storage.NewObjectKey(item.ID)
		var err error
		if url, err = s.attachments.PresignPut(ctx, key); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		if err := s.repomanager.Items(tx).SetAttachmentKey(ctx, item.ID, key); err != nil {
			return err
		}
		item.AttachmentKey = key
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.AttachmentUpload{ItemID: id, Key: key, URL: url}, nil
}

// AttachmentURL returns a presigned download URL for the attachment of item id.
func (s *ItemService) AttachmentURL(ctx context.Context, id int64) (string, error) {
	if s.attachments == nil {
		return "", ErrAttachmentsDisabled
	}

	item, err := s.repomanager.Items(s.db).Get(ctx, id)
	if err != nil {
		return "", err
	}
	if item.AttachmentKey == "" {
		return "", fmt.Errorf("%w: item has no attachment", common.ErrorNotFound)
	}

	url, err := s.attachments.PresignGet(ctx, item.AttachmentKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return url, nil
}
