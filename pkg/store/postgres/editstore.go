package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/glosahq/glosa/pkg/models"
)

var _ models.EditStore = &EditStoreDAO{}

type EditStoreDAO struct {
	db *bun.DB
}

func NewEditStoreDAO(db *bun.DB) *EditStoreDAO {
	return &EditStoreDAO{
		db: db,
	}
}

// Create inserts the edit and its seeded annotation rows in a single
// transaction. An advisory lock on (user, document) serializes concurrent
// creates; the partial unique index on document_edit is the backstop should
// the lock ever be bypassed.
func (dao *EditStoreDAO) Create(
	ctx context.Context,
	edit *models.DocumentEdit,
	rows *models.AnnotationRows,
) (*models.DocumentEdit, error) {
	if edit.UserID == "" {
		return nil, models.NewValidationError("UserID cannot be empty")
	}
	if !edit.Stage.Valid() {
		return nil, models.NewValidationError("invalid edit stage: " + string(edit.Stage))
	}

	lockKey := fmt.Sprintf("edit:%s:%s", edit.UserID, edit.DocumentUUID)

	lockRetryPolicy := retrypolicy.Builder[any]().
		HandleErrors(models.ErrLockAcquisitionFailed).
		WithBackoff(200*time.Millisecond, 10*time.Second).
		WithMaxRetries(7).
		Build()

	lockIDVal, err := failsafe.Get(func() (any, error) {
		return tryAcquireAdvisoryLock(ctx, dao.db, lockKey)
	}, lockRetryPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	lockID, ok := lockIDVal.(uint64)
	if !ok {
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", models.ErrLockAcquisitionFailed)
	}

	defer func(ctx context.Context, db bun.IDB, lockID uint64) {
		err := releaseAdvisoryLock(ctx, db, lockID)
		if err != nil {
			log.Errorf("failed to release advisory lock: %v", err)
		}
	}(ctx, dao.db, lockID)

	tx, err := dao.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx)

	exists, err := tx.NewSelect().
		Model((*DocumentEditSchema)(nil)).
		Where("user_id = ?", edit.UserID).
		Where("document_uuid = ?", edit.DocumentUUID).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active edit: %w", err)
	}
	if exists {
		return nil, models.NewConflictError(
			"user " + edit.UserID + " already has an active edit for document " +
				edit.DocumentUUID.String(),
		)
	}

	editDB := &DocumentEditSchema{
		UUID:         edit.UUID,
		DocumentUUID: edit.DocumentUUID,
		SchemaUUID:   edit.SchemaUUID,
		UserID:       edit.UserID,
		Stage:        string(edit.Stage),
	}
	_, err = tx.NewInsert().Model(editDB).Returning("*").Exec(ctx)
	if err != nil {
		if err, ok := err.(pgdriver.Error); ok && err.IntegrityViolation() {
			return nil, models.NewConflictError(
				"user " + edit.UserID + " already has an active edit for document " +
					edit.DocumentUUID.String(),
			)
		}
		return nil, fmt.Errorf("failed to insert edit: %w", err)
	}

	if err := insertAnnotationRows(ctx, tx, editDB.UUID, rows); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit edit create: %w", err)
	}

	return editSchemaToEdit(editDB), nil
}

func (dao *EditStoreDAO) Get(
	ctx context.Context,
	editUUID uuid.UUID,
	includeDeleted bool,
) (*models.DocumentEdit, error) {
	editDB := &DocumentEditSchema{}
	query := dao.db.NewSelect().
		Model(editDB).
		Where("uuid = ?", editUUID)
	if includeDeleted {
		query = query.WhereAllWithDeleted()
	}
	err := query.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("edit " + editUUID.String())
		}
		return nil, fmt.Errorf("failed to get edit: %w", err)
	}

	return editSchemaToEdit(editDB), nil
}

func (dao *EditStoreDAO) GetActive(
	ctx context.Context,
	userID string,
	documentUUID uuid.UUID,
) (*models.DocumentEdit, error) {
	editDB := &DocumentEditSchema{}
	err := dao.db.NewSelect().
		Model(editDB).
		Where("user_id = ?", userID).
		Where("document_uuid = ?", documentUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError(
				"active edit for user " + userID + " on document " + documentUUID.String(),
			)
		}
		return nil, fmt.Errorf("failed to get active edit: %w", err)
	}

	return editSchemaToEdit(editDB), nil
}

func (dao *EditStoreDAO) UpdateStage(
	ctx context.Context,
	editUUID uuid.UUID,
	stage models.EditStage,
) error {
	if !stage.Valid() {
		return models.NewValidationError("invalid edit stage: " + string(stage))
	}
	return dao.updateColumn(ctx, editUUID, "stage", string(stage))
}

// AdvanceWithRows moves the edit to the given stage and replaces its
// annotation rows in one transaction, so candidates seeded on entry to the
// stage never outlive a failed stage change.
func (dao *EditStoreDAO) AdvanceWithRows(
	ctx context.Context,
	editUUID uuid.UUID,
	stage models.EditStage,
	rows *models.AnnotationRows,
) error {
	if !stage.Valid() {
		return models.NewValidationError("invalid edit stage: " + string(stage))
	}

	tx, err := dao.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx)

	editDB := &DocumentEditSchema{UUID: editUUID, Stage: string(stage)}
	r, err := tx.NewUpdate().
		Model(editDB).
		Column("stage", "updated_at").
		Where("uuid = ?", editUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update edit stage: %w", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update edit stage: %w", err)
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("edit " + editUUID.String())
	}

	if err := replaceAnnotationRows(ctx, tx, editUUID, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit edit advance: %w", err)
	}
	return nil
}

func (dao *EditStoreDAO) UpdateOwner(
	ctx context.Context,
	editUUID uuid.UUID,
	userID string,
) error {
	if userID == "" {
		return models.NewValidationError("UserID cannot be empty")
	}
	err := dao.updateColumn(ctx, editUUID, "user_id", userID)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return models.NewConflictError(
				"user " + userID + " already has an active edit for this document",
			)
		}
		return err
	}
	return nil
}

func (dao *EditStoreDAO) updateColumn(
	ctx context.Context,
	editUUID uuid.UUID,
	column string,
	value string,
) error {
	editDB := &DocumentEditSchema{UUID: editUUID}
	switch column {
	case "stage":
		editDB.Stage = value
	case "user_id":
		editDB.UserID = value
	}
	r, err := dao.db.NewUpdate().
		Model(editDB).
		Column(column, "updated_at").
		Where("uuid = ?", editUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update edit %s: %w", column, err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update edit %s: %w", column, err)
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("edit " + editUUID.String())
	}
	return nil
}

// SoftDelete marks the edit deleted. Its annotation rows are retained until
// the purge job hard deletes them alongside the edit.
func (dao *EditStoreDAO) SoftDelete(ctx context.Context, editUUID uuid.UUID) error {
	r, err := dao.db.NewDelete().
		Model((*DocumentEditSchema)(nil)).
		Where("uuid = ?", editUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete edit: %w", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete edit: %w", err)
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("edit " + editUUID.String())
	}
	return nil
}
