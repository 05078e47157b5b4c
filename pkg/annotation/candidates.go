package annotation

import (
	"fmt"

	"github.com/glosahq/glosa/pkg/models"
)

// Suggestion is a pending machine-proposed item. Exactly one of Mention,
// Entity, Relation is set, matching Kind.
type Suggestion struct {
	Kind     models.CandidateKind
	Mention  *models.Mention
	Entity   *models.Entity
	Relation *models.Relation
}

// ID returns the arena id of the suggestion's payload.
func (s *Suggestion) ID() int64 {
	switch s.Kind {
	case models.KindMention:
		return s.Mention.ID
	case models.KindEntity:
		return s.Entity.ID
	default:
		return s.Relation.ID
	}
}

// PendingSuggestion looks up an unresolved suggestion by id. It returns
// NotFoundError for an unknown id, ValidationError for a confirmed item, and
// ConflictError for a suggestion that has already been resolved.
func (g *Graph) PendingSuggestion(id int64) (*Suggestion, error) {
	if m, ok := g.mentions[id]; ok {
		if err := checkPending(id, m.Provenance, m.Resolved); err != nil {
			return nil, err
		}
		return &Suggestion{Kind: models.KindMention, Mention: cloneMention(m)}, nil
	}
	if e, ok := g.entities[id]; ok {
		if err := checkPending(id, e.Provenance, e.Resolved); err != nil {
			return nil, err
		}
		return &Suggestion{Kind: models.KindEntity, Entity: cloneEntity(e)}, nil
	}
	if r, ok := g.relations[id]; ok {
		if err := checkPending(id, r.Provenance, r.Resolved); err != nil {
			return nil, err
		}
		return &Suggestion{Kind: models.KindRelation, Relation: cloneRelation(r)}, nil
	}
	return nil, models.NewNotFoundError(fmt.Sprintf("candidate %d", id))
}

func checkPending(id int64, provenance models.Provenance, resolved bool) error {
	if provenance != models.ProvenanceSuggestion {
		return models.NewValidationError(
			fmt.Sprintf("annotation %d is not a candidate", id),
		)
	}
	if resolved {
		return models.NewConflictError(
			fmt.Sprintf("candidate %d is already resolved", id),
		)
	}
	return nil
}

// MarkSuggestionResolved flips a pending suggestion to resolved, hiding it
// from read queries. The row is retained as an audit trail of what was
// suggested.
func (g *Graph) MarkSuggestionResolved(id int64) error {
	if _, err := g.PendingSuggestion(id); err != nil {
		return err
	}
	if m, ok := g.mentions[id]; ok {
		m.Resolved = true
		return nil
	}
	if e, ok := g.entities[id]; ok {
		e.Resolved = true
		return nil
	}
	g.relations[id].Resolved = true
	return nil
}

// CountPending returns the number of unresolved suggestions of the given
// kind. The edit state machine uses this as its stage-advancement gate.
func (g *Graph) CountPending(kind models.CandidateKind) int {
	switch kind {
	case models.KindMention:
		return len(g.Mentions(models.ProvenanceSuggestion))
	case models.KindEntity:
		return len(g.Entities(models.ProvenanceSuggestion))
	case models.KindRelation:
		return len(g.Relations(models.ProvenanceSuggestion))
	default:
		return 0
	}
}
