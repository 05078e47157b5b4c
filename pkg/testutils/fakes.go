package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/models"
)

// FakeEditStore is an in-memory models.EditStore. It mirrors the DB store's
// behavior closely enough for service and handler tests: one active edit per
// (user, document), soft deletes, NotFound on unknown uuids.
type FakeEditStore struct {
	mu    sync.Mutex
	edits map[uuid.UUID]*models.DocumentEdit
	rows  *FakeAnnotationStore
}

var _ models.EditStore = &FakeEditStore{}

func NewFakeEditStore(rows *FakeAnnotationStore) *FakeEditStore {
	return &FakeEditStore{
		edits: make(map[uuid.UUID]*models.DocumentEdit),
		rows:  rows,
	}
}

func (s *FakeEditStore) Create(
	ctx context.Context,
	edit *models.DocumentEdit,
	rows *models.AnnotationRows,
) (*models.DocumentEdit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edits {
		if e.DeletedAt == nil && e.UserID == edit.UserID && e.DocumentUUID == edit.DocumentUUID {
			return nil, models.NewConflictError(
				"user " + edit.UserID + " already has an active edit for document " +
					edit.DocumentUUID.String(),
			)
		}
	}
	stored := *edit
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.edits[stored.UUID] = &stored
	if s.rows != nil {
		if err := s.rows.SaveRows(ctx, stored.UUID, rows); err != nil {
			return nil, err
		}
	}
	copied := stored
	return &copied, nil
}

func (s *FakeEditStore) Get(
	_ context.Context,
	editUUID uuid.UUID,
	includeDeleted bool,
) (*models.DocumentEdit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editUUID]
	if !ok || (edit.DeletedAt != nil && !includeDeleted) {
		return nil, models.NewNotFoundError("edit " + editUUID.String())
	}
	copied := *edit
	return &copied, nil
}

func (s *FakeEditStore) GetActive(
	_ context.Context,
	userID string,
	documentUUID uuid.UUID,
) (*models.DocumentEdit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edits {
		if e.DeletedAt == nil && e.UserID == userID && e.DocumentUUID == documentUUID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, models.NewNotFoundError(
		"active edit for user " + userID + " on document " + documentUUID.String(),
	)
}

func (s *FakeEditStore) UpdateStage(
	_ context.Context,
	editUUID uuid.UUID,
	stage models.EditStage,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editUUID]
	if !ok || edit.DeletedAt != nil {
		return models.NewNotFoundError("edit " + editUUID.String())
	}
	edit.Stage = stage
	edit.UpdatedAt = time.Now()
	return nil
}

func (s *FakeEditStore) AdvanceWithRows(
	ctx context.Context,
	editUUID uuid.UUID,
	stage models.EditStage,
	rows *models.AnnotationRows,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editUUID]
	if !ok || edit.DeletedAt != nil {
		return models.NewNotFoundError("edit " + editUUID.String())
	}
	if s.rows != nil {
		if err := s.rows.SaveRows(ctx, editUUID, rows); err != nil {
			return err
		}
	}
	edit.Stage = stage
	edit.UpdatedAt = time.Now()
	return nil
}

func (s *FakeEditStore) UpdateOwner(
	_ context.Context,
	editUUID uuid.UUID,
	userID string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editUUID]
	if !ok || edit.DeletedAt != nil {
		return models.NewNotFoundError("edit " + editUUID.String())
	}
	edit.UserID = userID
	edit.UpdatedAt = time.Now()
	return nil
}

func (s *FakeEditStore) SoftDelete(_ context.Context, editUUID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editUUID]
	if !ok || edit.DeletedAt != nil {
		return models.NewNotFoundError("edit " + editUUID.String())
	}
	now := time.Now()
	edit.DeletedAt = &now
	return nil
}

// FakeAnnotationStore keeps annotation rows per edit in memory.
type FakeAnnotationStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.AnnotationRows
}

var _ models.AnnotationStore = &FakeAnnotationStore{}

func NewFakeAnnotationStore() *FakeAnnotationStore {
	return &FakeAnnotationStore{
		rows: make(map[uuid.UUID]*models.AnnotationRows),
	}
}

func (s *FakeAnnotationStore) LoadRows(
	_ context.Context,
	editUUID uuid.UUID,
) (*models.AnnotationRows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.rows[editUUID]
	if !ok {
		return &models.AnnotationRows{}, nil
	}
	return copyRows(rows), nil
}

func (s *FakeAnnotationStore) SaveRows(
	_ context.Context,
	editUUID uuid.UUID,
	rows *models.AnnotationRows,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rows == nil {
		rows = &models.AnnotationRows{}
	}
	s.rows[editUUID] = copyRows(rows)
	return nil
}

func copyRows(rows *models.AnnotationRows) *models.AnnotationRows {
	copied := &models.AnnotationRows{
		Mentions:  make([]models.Mention, len(rows.Mentions)),
		Entities:  make([]models.Entity, len(rows.Entities)),
		Relations: make([]models.Relation, len(rows.Relations)),
	}
	copy(copied.Mentions, rows.Mentions)
	copy(copied.Entities, rows.Entities)
	copy(copied.Relations, rows.Relations)
	for i := range copied.Mentions {
		copied.Mentions[i].TokenIDs = append([]int64(nil), copied.Mentions[i].TokenIDs...)
	}
	for i := range copied.Entities {
		copied.Entities[i].MentionIDs = append([]int64(nil), copied.Entities[i].MentionIDs...)
	}
	return copied
}

// FakeSchemaStore serves schemas from a map.
type FakeSchemaStore struct {
	Schemas map[uuid.UUID]*models.AnnotationSchema
}

var _ models.SchemaStore = &FakeSchemaStore{}

func NewFakeSchemaStore(schemas ...*models.AnnotationSchema) *FakeSchemaStore {
	s := &FakeSchemaStore{Schemas: make(map[uuid.UUID]*models.AnnotationSchema)}
	for _, schema := range schemas {
		s.Schemas[schema.UUID] = schema
	}
	return s
}

func (s *FakeSchemaStore) Get(
	_ context.Context,
	schemaUUID uuid.UUID,
) (*models.AnnotationSchema, error) {
	schema, ok := s.Schemas[schemaUUID]
	if !ok {
		return nil, models.NewNotFoundError("schema " + schemaUUID.String())
	}
	return schema, nil
}

// FakeTokenProvider serves tokens from a map.
type FakeTokenProvider struct {
	Tokens map[uuid.UUID][]models.Token
}

var _ models.TokenProvider = &FakeTokenProvider{}

func NewFakeTokenProvider() *FakeTokenProvider {
	return &FakeTokenProvider{Tokens: make(map[uuid.UUID][]models.Token)}
}

func (s *FakeTokenProvider) GetTokens(
	_ context.Context,
	documentUUID uuid.UUID,
) ([]models.Token, error) {
	tokens, ok := s.Tokens[documentUUID]
	if !ok {
		return nil, models.NewNotFoundError("document " + documentUUID.String())
	}
	return tokens, nil
}

// FakeAccessControl grants or denies access based on its fields. The zero
// value denies everything; AllowAll is the common test setup.
type FakeAccessControl struct {
	AllowAll bool
	Admins   map[string]bool
	Allowed  map[string]bool
}

var _ models.AccessControl = &FakeAccessControl{}

func (s *FakeAccessControl) UserCanAccessDocument(
	_ context.Context,
	userID string,
	_ uuid.UUID,
) (bool, error) {
	if s.AllowAll {
		return true, nil
	}
	return s.Allowed[userID], nil
}

func (s *FakeAccessControl) CanAdminister(
	_ context.Context,
	userID string,
	_ uuid.UUID,
) (bool, error) {
	return s.Admins[userID], nil
}

// FakeInferenceClient returns canned proposals, or Err from every call when
// set.
type FakeInferenceClient struct {
	Mentions     []models.MentionSpan
	Relations    []models.RelationCandidate
	EntityGroups []models.EntityGroup
	Err          error
}

var _ models.InferenceClient = &FakeInferenceClient{}

func (c *FakeInferenceClient) ProposeMentions(
	_ context.Context,
	_ uuid.UUID,
	_ *models.AnnotationSchema,
	_ []models.Token,
) ([]models.MentionSpan, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Mentions, nil
}

func (c *FakeInferenceClient) ProposeRelations(
	_ context.Context,
	_ uuid.UUID,
	_ *models.AnnotationSchema,
	_ []models.Mention,
) ([]models.RelationCandidate, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Relations, nil
}

func (c *FakeInferenceClient) ProposeEntityGroups(
	_ context.Context,
	_ uuid.UUID,
	_ *models.AnnotationSchema,
	_ []models.Mention,
) ([]models.EntityGroup, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.EntityGroups, nil
}
