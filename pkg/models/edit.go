package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EditStage is a stage of a document edit's workflow. Stages advance in
// strict forward order with no skipping and no going back.
type EditStage string

const (
	StageMentionSuggestion  EditStage = "MENTION_SUGGESTION"
	StageMentions           EditStage = "MENTIONS"
	StageEntities           EditStage = "ENTITIES"
	StageRelationSuggestion EditStage = "RELATION_SUGGESTION"
	StageRelations          EditStage = "RELATIONS"
	StageFinished           EditStage = "FINISHED"
)

// StageOrder lists all stages in workflow order.
var StageOrder = []EditStage{
	StageMentionSuggestion,
	StageMentions,
	StageEntities,
	StageRelationSuggestion,
	StageRelations,
	StageFinished,
}

// Next returns the single legal successor stage. The second return value is
// false for the terminal stage and for unknown stages.
func (s EditStage) Next() (EditStage, bool) {
	for i, stage := range StageOrder {
		if stage == s && i < len(StageOrder)-1 {
			return StageOrder[i+1], true
		}
	}
	return "", false
}

// Terminal reports whether the stage is the final one.
func (s EditStage) Terminal() bool {
	return s == StageFinished
}

// Valid reports whether s is a known stage.
func (s EditStage) Valid() bool {
	for _, stage := range StageOrder {
		if stage == s {
			return true
		}
	}
	return false
}

// DocumentEdit is one user's staged working copy of annotations for one
// document. At most one non-deleted edit may exist per (user, document).
type DocumentEdit struct {
	UUID         uuid.UUID  `json:"uuid"`
	ID           int64      `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	DocumentUUID uuid.UUID  `json:"document_uuid"`
	SchemaUUID   uuid.UUID  `json:"schema_uuid"`
	UserID       string     `json:"user_id"`
	Stage        EditStage  `json:"stage"`
}

type EditStore interface {
	// Create inserts the edit together with its seeded annotation rows in a
	// single transaction. Returns ConflictError if a non-deleted edit already
	// exists for (UserID, DocumentUUID).
	Create(ctx context.Context, edit *DocumentEdit, rows *AnnotationRows) (*DocumentEdit, error)
	Get(ctx context.Context, editUUID uuid.UUID, includeDeleted bool) (*DocumentEdit, error)
	// GetActive returns the non-deleted edit for (userID, documentUUID), or
	// NotFoundError if there is none.
	GetActive(ctx context.Context, userID string, documentUUID uuid.UUID) (*DocumentEdit, error)
	UpdateStage(ctx context.Context, editUUID uuid.UUID, stage EditStage) error
	// AdvanceWithRows updates the edit's stage and replaces its annotation
	// rows in a single transaction, so candidates seeded on entry to a stage
	// land together with the stage they belong to.
	AdvanceWithRows(ctx context.Context, editUUID uuid.UUID, stage EditStage, rows *AnnotationRows) error
	UpdateOwner(ctx context.Context, editUUID uuid.UUID, userID string) error
	SoftDelete(ctx context.Context, editUUID uuid.UUID) error
}

type AnnotationStore interface {
	LoadRows(ctx context.Context, editUUID uuid.UUID) (*AnnotationRows, error)
	// SaveRows replaces the edit's annotation rows in a single transaction.
	SaveRows(ctx context.Context, editUUID uuid.UUID, rows *AnnotationRows) error
}

// AccessControl is the external authorization collaborator.
type AccessControl interface {
	UserCanAccessDocument(ctx context.Context, userID string, documentUUID uuid.UUID) (bool, error)
	// CanAdminister reports whether the user has elevated access to the
	// document, beyond plain read/annotate access.
	CanAdminister(ctx context.Context, userID string, documentUUID uuid.UUID) (bool, error)
}
