package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/annotation"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/reconcile"
)

// Create opens a new document edit for the user in the MENTION_SUGGESTION
// stage and seeds it with the document's mention recommendations. At most
// one active edit may exist per (user, document); a second create fails with
// ConflictError.
func (s *Service) Create(
	ctx context.Context,
	documentUUID uuid.UUID,
	userID string,
	schemaUUID uuid.UUID,
) (*models.DocumentEdit, error) {
	if err := s.requireDocumentAccess(ctx, userID, documentUUID); err != nil {
		return nil, err
	}

	existing, err := s.edits.GetActive(ctx, userID, documentUUID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(
			fmt.Sprintf(
				"user %s already has an active edit %s for document %s",
				userID, existing.UUID, documentUUID,
			),
		)
	}

	idx, annotationSchema, err := s.schemaIndex(ctx, schemaUUID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.tokens.GetTokens(ctx, documentUUID)
	if err != nil {
		return nil, err
	}

	graph := annotation.NewGraph(idx, tokens)
	spans, err := s.inference.ProposeMentions(ctx, documentUUID, annotationSchema, tokens)
	if err != nil {
		return nil, err
	}
	reconciler := reconcile.NewReconciler(graph)
	seeded, err := reconciler.ImportMentionCandidates(spans)
	if err != nil {
		return nil, err
	}
	log.Debugf("seeded %d mention candidates for document %s", len(seeded), documentUUID)

	edit := &models.DocumentEdit{
		UUID:         uuid.New(),
		DocumentUUID: documentUUID,
		SchemaUUID:   schemaUUID,
		UserID:       userID,
		Stage:        models.StageMentionSuggestion,
	}
	return s.edits.Create(ctx, edit, graph.ExportRows())
}

// Get returns an edit together with its pending candidate counts. Any user
// with access to the edit's document may read it.
func (s *Service) Get(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
) (*models.DocumentEdit, map[models.CandidateKind]int, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireDocumentAccess(ctx, actingUserID, sess.edit.DocumentUUID); err != nil {
		return nil, nil, err
	}
	counts := map[models.CandidateKind]int{
		models.KindMention:  sess.graph.CountPending(models.KindMention),
		models.KindEntity:   sess.graph.CountPending(models.KindEntity),
		models.KindRelation: sess.graph.CountPending(models.KindRelation),
	}
	return sess.edit, counts, nil
}

// Advance moves an edit to the requested stage. Only the single legal
// successor of the current stage is accepted, and the suggestion stages
// cannot be left while unreviewed recommendations remain. Entering a stage
// that consumes machine proposals seeds the matching candidates.
func (s *Service) Advance(
	ctx context.Context,
	editUUID uuid.UUID,
	requested models.EditStage,
	actingUserID string,
) (*models.DocumentEdit, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return nil, err
	}
	if sess.edit.Stage.Terminal() {
		return nil, models.NewValidationError(
			fmt.Sprintf("edit %s is finished and cannot advance", editUUID),
		)
	}
	next, ok := sess.edit.Stage.Next()
	if !ok || requested != next {
		return nil, models.NewValidationError(
			fmt.Sprintf(
				"cannot advance from %s to %s, next stage is %s",
				sess.edit.Stage, requested, next,
			),
		)
	}

	reconciler := reconcile.NewReconciler(sess.graph)
	switch sess.edit.Stage {
	case models.StageMentionSuggestion:
		if n := reconciler.CountPending(models.KindMention); n > 0 {
			return nil, models.NewValidationError(
				fmt.Sprintf("unreviewed recommendations left: %d mention candidates pending", n),
			)
		}
	case models.StageRelationSuggestion:
		if n := reconciler.CountPending(models.KindRelation); n > 0 {
			return nil, models.NewValidationError(
				fmt.Sprintf("unreviewed recommendations left: %d relation candidates pending", n),
			)
		}
	}

	seeded, err := s.seedForStage(ctx, sess, reconciler, requested)
	if err != nil {
		return nil, err
	}
	if seeded {
		// the seeded rows and the stage change must land together, or a
		// retried advance would import the same proposals twice
		if err := s.edits.AdvanceWithRows(ctx, editUUID, requested, sess.graph.ExportRows()); err != nil {
			return nil, err
		}
	} else if err := s.edits.UpdateStage(ctx, editUUID, requested); err != nil {
		return nil, err
	}
	sess.edit.Stage = requested
	return sess.edit, nil
}

// seedForStage imports the machine proposals a stage consumes: entity groups
// when entering ENTITIES, relation candidates when entering
// RELATION_SUGGESTION. Both imports are best effort.
func (s *Service) seedForStage(
	ctx context.Context,
	sess *session,
	reconciler *reconcile.Reconciler,
	stage models.EditStage,
) (bool, error) {
	confirmed := sess.graph.Mentions(models.ProvenanceConfirmed)
	switch stage {
	case models.StageEntities:
		groups, err := s.inference.ProposeEntityGroups(
			ctx, sess.edit.DocumentUUID, sess.schema, confirmed,
		)
		if err != nil {
			return false, err
		}
		created := reconciler.ImportEntityCandidates(groups)
		log.Debugf("seeded %d entity candidates for edit %s", len(created), sess.edit.UUID)
		return true, nil
	case models.StageRelationSuggestion:
		candidates, err := s.inference.ProposeRelations(
			ctx, sess.edit.DocumentUUID, sess.schema, confirmed,
		)
		if err != nil {
			return false, err
		}
		created := reconciler.ImportRelationCandidates(candidates)
		log.Debugf("seeded %d relation candidates for edit %s", len(created), sess.edit.UUID)
		return true, nil
	}
	return false, nil
}

// Overtake transfers ownership of an edit to another authorized user. Stage
// and content are untouched.
func (s *Service) Overtake(
	ctx context.Context,
	editUUID uuid.UUID,
	newUserID string,
) (*models.DocumentEdit, error) {
	edit, err := s.edits.Get(ctx, editUUID, false)
	if err != nil {
		return nil, err
	}
	if edit.UserID == newUserID {
		return nil, models.NewValidationError(
			fmt.Sprintf("user %s already owns edit %s", newUserID, editUUID),
		)
	}
	other, err := s.edits.GetActive(ctx, newUserID, edit.DocumentUUID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if other != nil {
		return nil, models.NewValidationError(
			fmt.Sprintf(
				"user %s already has an active edit %s for document %s",
				newUserID, other.UUID, edit.DocumentUUID,
			),
		)
	}
	if err := s.requireDocumentAccess(ctx, newUserID, edit.DocumentUUID); err != nil {
		return nil, err
	}
	if err := s.edits.UpdateOwner(ctx, editUUID, newUserID); err != nil {
		return nil, err
	}
	edit.UserID = newUserID
	return edit, nil
}

// SoftDelete marks an edit inactive. Deleting an already-inactive edit is a
// no-op success. Requires ownership or elevated document access.
func (s *Service) SoftDelete(ctx context.Context, editUUID uuid.UUID, actingUserID string) error {
	edit, err := s.edits.Get(ctx, editUUID, true)
	if err != nil {
		return err
	}
	if edit.DeletedAt != nil {
		return nil
	}
	if edit.UserID != actingUserID {
		elevated, err := s.access.CanAdminister(ctx, actingUserID, edit.DocumentUUID)
		if err != nil {
			return err
		}
		if !elevated {
			return models.NewForbiddenError(
				fmt.Sprintf("user %s cannot delete edit %s", actingUserID, editUUID),
			)
		}
	}
	return s.edits.SoftDelete(ctx, editUUID)
}
