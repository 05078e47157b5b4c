// Package reconcile bridges the external inference boundary and the
// annotation graph. It imports candidate annotations, filters and
// deduplicates them, and manages the accept/reject lifecycle that promotes a
// candidate into the graph or discards it.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/glosahq/glosa/internal"
	"github.com/glosahq/glosa/pkg/annotation"
	"github.com/glosahq/glosa/pkg/models"
)

var log = internal.GetLogger()

// Reconciler manages machine-proposed candidates for one annotation graph.
type Reconciler struct {
	graph *annotation.Graph
}

func NewReconciler(graph *annotation.Graph) *Reconciler {
	return &Reconciler{graph: graph}
}

// ImportMentionCandidates imports raw mention spans as suggestion mentions.
// The whole batch is rejected with ConflictError if any span is inverted or
// if any two spans overlap; duplicates count as overlap. Spans that map to
// zero tokens are silently dropped.
func (r *Reconciler) ImportMentionCandidates(spans []models.MentionSpan) ([]models.Mention, error) {
	sorted := append([]models.MentionSpan{}, spans...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTokenDocumentIndex < sorted[j].StartTokenDocumentIndex
	})
	for i, span := range sorted {
		if span.StartTokenDocumentIndex > span.EndTokenDocumentIndex {
			return nil, models.NewConflictError(
				fmt.Sprintf(
					"candidate span [%d, %d] is inverted",
					span.StartTokenDocumentIndex, span.EndTokenDocumentIndex,
				),
			)
		}
		if i > 0 && sorted[i-1].EndTokenDocumentIndex >= span.StartTokenDocumentIndex {
			return nil, models.NewConflictError(
				fmt.Sprintf(
					"candidate spans [%d, %d] and [%d, %d] overlap",
					sorted[i-1].StartTokenDocumentIndex, sorted[i-1].EndTokenDocumentIndex,
					span.StartTokenDocumentIndex, span.EndTokenDocumentIndex,
				),
			)
		}
	}

	var created []models.Mention
	for _, span := range sorted {
		tokenIDs := r.graph.TokenIDsInRange(
			span.StartTokenDocumentIndex,
			span.EndTokenDocumentIndex,
		)
		if len(tokenIDs) == 0 {
			log.Debugf(
				"dropping candidate span [%d, %d]: no tokens in range",
				span.StartTokenDocumentIndex, span.EndTokenDocumentIndex,
			)
			continue
		}
		m, err := r.graph.CreateMention(span.Type, tokenIDs, models.ProvenanceSuggestion)
		if err != nil {
			return nil, err
		}
		created = append(created, *m)
	}
	return created, nil
}

// ImportRelationCandidates imports raw relation proposals as suggestion
// relations. The import is best effort: candidates whose endpoints are
// missing or whose constraint lookup fails are dropped from the batch rather
// than failing the whole import.
func (r *Reconciler) ImportRelationCandidates(candidates []models.RelationCandidate) []models.Relation {
	var created []models.Relation
	for _, c := range candidates {
		rel, err := r.graph.CreateRelation(
			c.Tag, c.HeadMentionID, c.TailMentionID, false, models.ProvenanceSuggestion,
		)
		if err != nil {
			log.Debugf(
				"dropping candidate relation %s(%d, %d): %v",
				c.Tag, c.HeadMentionID, c.TailMentionID, err,
			)
			continue
		}
		created = append(created, *rel)
	}
	return created
}

// ImportEntityCandidates imports raw entity groups as suggestion entities.
// Mention ids that do not refer to an entity-eligible confirmed mention are
// filtered out of their group, as are repeats of an id already in the group;
// groups that become empty, or that mix mention types after filtering, are
// dropped.
func (r *Reconciler) ImportEntityCandidates(groups []models.EntityGroup) []models.Entity {
	var created []models.Entity
	for _, group := range groups {
		var members []int64
		seen := make(map[int64]struct{}, len(group.MentionIDs))
		for _, mid := range group.MentionIDs {
			if _, dup := seen[mid]; dup {
				continue
			}
			seen[mid] = struct{}{}
			m, err := r.graph.Mention(mid)
			if err != nil || m.Provenance != models.ProvenanceConfirmed {
				continue
			}
			members = append(members, mid)
		}
		if len(members) == 0 {
			continue
		}
		e, err := r.graph.CreateEntity(members, models.ProvenanceSuggestion)
		if err != nil {
			log.Debugf("dropping candidate entity group %v: %v", group.MentionIDs, err)
			continue
		}
		created = append(created, *e)
	}
	return created
}

// Accept promotes a pending candidate: its content is cloned into a new
// confirmed annotation of the same kind, running the same invariants as a
// human-authored create, and the original is marked resolved. Both are
// retained; only the clone counts toward stage-advancement checks.
func (r *Reconciler) Accept(candidateID int64) (*annotation.Suggestion, error) {
	s, err := r.graph.PendingSuggestion(candidateID)
	if err != nil {
		return nil, err
	}

	clone := &annotation.Suggestion{Kind: s.Kind}
	switch s.Kind {
	case models.KindMention:
		clone.Mention, err = r.graph.CreateMention(
			s.Mention.TypeTag, s.Mention.TokenIDs, models.ProvenanceConfirmed,
		)
	case models.KindEntity:
		clone.Entity, err = r.graph.CreateEntity(
			s.Entity.MentionIDs, models.ProvenanceConfirmed,
		)
	case models.KindRelation:
		clone.Relation, err = r.graph.CreateRelation(
			s.Relation.Tag,
			s.Relation.HeadID,
			s.Relation.TailID,
			s.Relation.Directed,
			models.ProvenanceConfirmed,
		)
	}
	if err != nil {
		return nil, err
	}

	if err := r.graph.MarkSuggestionResolved(candidateID); err != nil {
		return nil, err
	}
	return clone, nil
}

// Reject marks a pending candidate resolved without creating anything.
// Rejecting an already-resolved candidate fails with ConflictError; it never
// silently succeeds twice.
func (r *Reconciler) Reject(candidateID int64) error {
	return r.graph.MarkSuggestionResolved(candidateID)
}

// CountPending returns the number of unresolved candidates of a kind.
func (r *Reconciler) CountPending(kind models.CandidateKind) int {
	return r.graph.CountPending(kind)
}
