package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosahq/glosa/pkg/annotation"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/schema"
	"github.com/glosahq/glosa/pkg/testutils"
)

func newTestReconciler(t *testing.T, tokenCount int) (*Reconciler, *annotation.Graph) {
	t.Helper()
	idx := schema.NewIndex(testutils.NewTestSchema())
	g := annotation.NewGraph(idx, testutils.NewTestTokens(tokenCount))
	return NewReconciler(g), g
}

func TestReconciler_ImportMentionCandidates(t *testing.T) {
	tests := []struct {
		name      string
		spans     []models.MentionSpan
		wantCount int
		wantErr   error
	}{
		{
			name: "disjoint spans imported in order",
			spans: []models.MentionSpan{
				{StartTokenDocumentIndex: 4, EndTokenDocumentIndex: 5, Type: "Place"},
				{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 1, Type: "Actor"},
			},
			wantCount: 2,
		},
		{
			name: "overlapping spans reject the whole batch",
			spans: []models.MentionSpan{
				{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 2, Type: "Actor"},
				{StartTokenDocumentIndex: 2, EndTokenDocumentIndex: 4, Type: "Place"},
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "duplicate spans reject the whole batch",
			spans: []models.MentionSpan{
				{StartTokenDocumentIndex: 1, EndTokenDocumentIndex: 2, Type: "Actor"},
				{StartTokenDocumentIndex: 1, EndTokenDocumentIndex: 2, Type: "Actor"},
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "inverted span rejects the whole batch",
			spans: []models.MentionSpan{
				{StartTokenDocumentIndex: 3, EndTokenDocumentIndex: 1, Type: "Actor"},
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "span outside the document is dropped",
			spans: []models.MentionSpan{
				{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 1, Type: "Actor"},
				{StartTokenDocumentIndex: 50, EndTokenDocumentIndex: 60, Type: "Place"},
			},
			wantCount: 1,
		},
		{
			name: "unknown type fails the import",
			spans: []models.MentionSpan{
				{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 1, Type: "Verb"},
			},
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g := newTestReconciler(t, 10)
			created, err := r.ImportMentionCandidates(tt.spans)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, g.CountPending(models.KindMention))
				return
			}
			require.NoError(t, err)
			assert.Len(t, created, tt.wantCount)
			assert.Equal(t, tt.wantCount, g.CountPending(models.KindMention))
			for _, m := range created {
				assert.Equal(t, models.ProvenanceSuggestion, m.Provenance)
			}
		})
	}
}

func TestReconciler_ImportRelationCandidates_BestEffort(t *testing.T) {
	r, g := newTestReconciler(t, 10)

	actor, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	place, err := g.CreateMention("Place", []int64{3}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	created := r.ImportRelationCandidates([]models.RelationCandidate{
		{Tag: "performs", HeadMentionID: actor.ID, TailMentionID: action.ID},
		// missing endpoint, dropped
		{Tag: "performs", HeadMentionID: actor.ID, TailMentionID: 99},
		// no constraint for the pair, dropped
		{Tag: "performs", HeadMentionID: actor.ID, TailMentionID: place.ID},
	})

	require.Len(t, created, 1)
	assert.Equal(t, "performs", created[0].Tag)
	assert.True(t, created[0].Directed)
	assert.Equal(t, models.ProvenanceSuggestion, created[0].Provenance)
	assert.Equal(t, 1, g.CountPending(models.KindRelation))
}

func TestReconciler_ImportEntityCandidates_FiltersMembers(t *testing.T) {
	r, g := newTestReconciler(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	a2, err := g.CreateMention("Actor", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	suggested, err := g.CreateMention("Actor", []int64{3}, models.ProvenanceSuggestion)
	require.NoError(t, err)

	created := r.ImportEntityCandidates([]models.EntityGroup{
		// unknown and suggested ids are filtered, a repeated id counts once
		{MentionIDs: []int64{a1.ID, a2.ID, a1.ID, suggested.ID, 99}},
		// filters to empty, dropped
		{MentionIDs: []int64{99, suggested.ID}},
	})

	require.Len(t, created, 1)
	assert.ElementsMatch(t, []int64{a1.ID, a2.ID}, created[0].MentionIDs)
	assert.Equal(t, models.ProvenanceSuggestion, created[0].Provenance)

	// suggestion entities leave their members untouched until accepted
	m, err := g.Mention(a1.ID)
	require.NoError(t, err)
	assert.Zero(t, m.EntityID)
}

func TestReconciler_AcceptClonesAndResolves(t *testing.T) {
	r, g := newTestReconciler(t, 10)

	created, err := r.ImportMentionCandidates([]models.MentionSpan{
		{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 1, Type: "Actor"},
	})
	require.NoError(t, err)
	candidate := created[0]

	clone, err := r.Accept(candidate.ID)
	require.NoError(t, err)
	require.Equal(t, models.KindMention, clone.Kind)
	assert.NotEqual(t, candidate.ID, clone.Mention.ID)
	assert.Equal(t, models.ProvenanceConfirmed, clone.Mention.Provenance)
	assert.Equal(t, candidate.TokenIDs, clone.Mention.TokenIDs)

	// the original is resolved, not deleted: hidden from reads, kept in rows
	_, err = g.Mention(candidate.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	rows := g.ExportRows()
	require.Len(t, rows.Mentions, 2)
	assert.True(t, rows.Mentions[0].Resolved)

	assert.Equal(t, 0, r.CountPending(models.KindMention))

	// accepting twice conflicts
	_, err = r.Accept(candidate.ID)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestReconciler_AcceptRunsConfirmedInvariants(t *testing.T) {
	r, g := newTestReconciler(t, 10)

	created, err := r.ImportMentionCandidates([]models.MentionSpan{
		{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 1, Type: "Actor"},
	})
	require.NoError(t, err)

	// a human claims one of the candidate's tokens first
	_, err = g.CreateMention("Place", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	_, err = r.Accept(created[0].ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	// the candidate stays pending after a failed accept
	assert.Equal(t, 1, r.CountPending(models.KindMention))
}

func TestReconciler_RejectIsNotIdempotent(t *testing.T) {
	r, g := newTestReconciler(t, 10)

	created, err := r.ImportMentionCandidates([]models.MentionSpan{
		{StartTokenDocumentIndex: 0, EndTokenDocumentIndex: 0, Type: "Actor"},
	})
	require.NoError(t, err)
	candidate := created[0]

	require.NoError(t, r.Reject(candidate.ID))
	assert.Equal(t, 0, r.CountPending(models.KindMention))
	_, err = g.Mention(candidate.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// a second reject reports the conflict instead of silently succeeding
	assert.ErrorIs(t, r.Reject(candidate.ID), models.ErrConflict)
}
