package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/glosahq/glosa/pkg/models"
)

const RoleAdmin = "admin"

var _ models.AccessControl = &AccessStoreDAO{}

// AccessStoreDAO answers document access questions from the document_access
// table. Access is granted per (user, document); the "admin" role covers
// administration of other users' edits on top of plain annotate access.
type AccessStoreDAO struct {
	db *bun.DB
}

func NewAccessStoreDAO(db *bun.DB) *AccessStoreDAO {
	return &AccessStoreDAO{
		db: db,
	}
}

func (dao *AccessStoreDAO) UserCanAccessDocument(
	ctx context.Context,
	userID string,
	documentUUID uuid.UUID,
) (bool, error) {
	exists, err := dao.db.NewSelect().
		Model((*DocumentAccessSchema)(nil)).
		Where("user_id = ?", userID).
		Where("document_uuid = ?", documentUUID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check document access: %w", err)
	}
	return exists, nil
}

func (dao *AccessStoreDAO) CanAdminister(
	ctx context.Context,
	userID string,
	documentUUID uuid.UUID,
) (bool, error) {
	exists, err := dao.db.NewSelect().
		Model((*DocumentAccessSchema)(nil)).
		Where("user_id = ?", userID).
		Where("document_uuid = ?", documentUUID).
		Where("role = ?", RoleAdmin).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check document admin access: %w", err)
	}
	return exists, nil
}
