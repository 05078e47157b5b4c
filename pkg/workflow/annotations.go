package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/annotation"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/reconcile"
)

// CreateMention adds a confirmed mention to an edit's graph.
func (s *Service) CreateMention(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	typeTag string,
	tokenIDs []int64,
) (*models.Mention, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return nil, err
	}
	mention, err := sess.graph.CreateMention(typeTag, tokenIDs, models.ProvenanceConfirmed)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return mention, nil
}

// UpdateMention retags, retokenizes, or reassigns a confirmed mention.
func (s *Service) UpdateMention(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	mentionID int64,
	update annotation.MentionUpdate,
) (*models.Mention, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return nil, err
	}
	mention, err := sess.graph.UpdateMention(mentionID, update)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return mention, nil
}

// DeleteMention removes a mention with its relation and entity cascades.
func (s *Service) DeleteMention(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	mentionID int64,
) error {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return err
	}
	if err := sess.graph.DeleteMention(mentionID); err != nil {
		return err
	}
	return s.save(ctx, sess)
}

// CreateEntity clusters mentions into a confirmed entity.
func (s *Service) CreateEntity(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	mentionIDs []int64,
) (*models.Entity, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return nil, err
	}
	entity, err := sess.graph.CreateEntity(mentionIDs, models.ProvenanceConfirmed)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return entity, nil
}

// DeleteEntity removes an entity, leaving its member mentions in place.
func (s *Service) DeleteEntity(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	entityID int64,
) error {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return err
	}
	if err := sess.graph.DeleteEntity(entityID); err != nil {
		return err
	}
	return s.save(ctx, sess)
}

// CreateRelation adds a confirmed relation between two mentions.
func (s *Service) CreateRelation(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	relationTag string,
	headID, tailID int64,
	directed bool,
) (*models.Relation, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return nil, err
	}
	relation, err := sess.graph.CreateRelation(
		relationTag, headID, tailID, directed, models.ProvenanceConfirmed,
	)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return relation, nil
}

// DeleteRelation removes a relation.
func (s *Service) DeleteRelation(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	relationID int64,
) error {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return err
	}
	if err := sess.graph.DeleteRelation(relationID); err != nil {
		return err
	}
	return s.save(ctx, sess)
}

// PendingCandidates lists the unresolved suggestions of a kind. Any user
// with access to the edit's document may read them.
func (s *Service) PendingCandidates(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	kind models.CandidateKind,
) (*models.AnnotationRows, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDocumentAccess(ctx, actingUserID, sess.edit.DocumentUUID); err != nil {
		return nil, err
	}
	rows := &models.AnnotationRows{}
	switch kind {
	case models.KindMention:
		rows.Mentions = sess.graph.Mentions(models.ProvenanceSuggestion)
	case models.KindEntity:
		rows.Entities = sess.graph.Entities(models.ProvenanceSuggestion)
	case models.KindRelation:
		rows.Relations = sess.graph.Relations(models.ProvenanceSuggestion)
	default:
		return nil, models.NewValidationError("unknown candidate kind " + string(kind))
	}
	return rows, nil
}

// AcceptCandidate promotes a pending candidate into a confirmed annotation.
func (s *Service) AcceptCandidate(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	candidateID int64,
) (*annotation.Suggestion, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return nil, err
	}
	clone, err := reconcile.NewReconciler(sess.graph).Accept(candidateID)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return clone, nil
}

// RejectCandidate discards a pending candidate.
func (s *Service) RejectCandidate(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
	candidateID int64,
) error {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(sess, actingUserID); err != nil {
		return err
	}
	if err := reconcile.NewReconciler(sess.graph).Reject(candidateID); err != nil {
		return err
	}
	return s.save(ctx, sess)
}

// Snapshot exports the edit's confirmed annotations for downstream scoring.
// Any user with access to the edit's document may read it.
func (s *Service) Snapshot(
	ctx context.Context,
	editUUID uuid.UUID,
	actingUserID string,
) (*models.AnnotationSnapshot, error) {
	sess, err := s.loadSession(ctx, editUUID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDocumentAccess(ctx, actingUserID, sess.edit.DocumentUUID); err != nil {
		return nil, err
	}
	return sess.graph.Snapshot(sess.edit.DocumentUUID), nil
}
