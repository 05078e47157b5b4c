// Package workflow implements the staged lifecycle of document edits and the
// unit-of-work around every annotation mutation: load the edit's graph,
// mutate it in memory, and write the result back atomically.
package workflow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/internal"
	"github.com/glosahq/glosa/pkg/annotation"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/schema"
)

var log = internal.GetLogger()

// Service coordinates edits, annotation state, the schema index, and the
// inference boundary.
type Service struct {
	edits       models.EditStore
	annotations models.AnnotationStore
	schemas     models.SchemaStore
	tokens      models.TokenProvider
	access      models.AccessControl
	inference   models.InferenceClient

	// schema indexes are immutable once built and shared across sessions
	indexMu sync.Mutex
	indexes map[uuid.UUID]*schema.Index
}

func NewService(appState *models.AppState) *Service {
	return &Service{
		edits:       appState.EditStore,
		annotations: appState.AnnotationStore,
		schemas:     appState.SchemaStore,
		tokens:      appState.TokenProvider,
		access:      appState.AccessControl,
		inference:   appState.Inference,
		indexes:     make(map[uuid.UUID]*schema.Index),
	}
}

// session is one edit's loaded working state.
type session struct {
	edit   *models.DocumentEdit
	schema *models.AnnotationSchema
	graph  *annotation.Graph
}

func (s *Service) schemaIndex(ctx context.Context, schemaUUID uuid.UUID) (*schema.Index, *models.AnnotationSchema, error) {
	annotationSchema, err := s.schemas.Get(ctx, schemaUUID)
	if err != nil {
		return nil, nil, err
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	idx, ok := s.indexes[schemaUUID]
	if !ok {
		idx = schema.NewIndex(annotationSchema)
		s.indexes[schemaUUID] = idx
	}
	return idx, annotationSchema, nil
}

// loadSession loads an edit and materializes its annotation graph.
func (s *Service) loadSession(ctx context.Context, editUUID uuid.UUID) (*session, error) {
	edit, err := s.edits.Get(ctx, editUUID, false)
	if err != nil {
		return nil, err
	}
	idx, annotationSchema, err := s.schemaIndex(ctx, edit.SchemaUUID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.tokens.GetTokens(ctx, edit.DocumentUUID)
	if err != nil {
		return nil, err
	}
	rows, err := s.annotations.LoadRows(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	return &session{
		edit:   edit,
		schema: annotationSchema,
		graph:  annotation.FromRows(idx, tokens, rows),
	}, nil
}

// save writes the session's graph back to the store.
func (s *Service) save(ctx context.Context, sess *session) error {
	return s.annotations.SaveRows(ctx, sess.edit.UUID, sess.graph.ExportRows())
}

func (s *Service) requireDocumentAccess(
	ctx context.Context,
	userID string,
	documentUUID uuid.UUID,
) error {
	canAccess, err := s.access.UserCanAccessDocument(ctx, userID, documentUUID)
	if err != nil {
		return err
	}
	if !canAccess {
		return models.NewForbiddenError(
			"user " + userID + " cannot access document " + documentUUID.String(),
		)
	}
	return nil
}

func (s *Service) requireOwner(sess *session, actingUserID string) error {
	if sess.edit.UserID != actingUserID {
		return models.NewForbiddenError(
			"user " + actingUserID + " does not own edit " + sess.edit.UUID.String(),
		)
	}
	return nil
}
