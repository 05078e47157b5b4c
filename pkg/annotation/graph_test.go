package annotation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/schema"
	"github.com/glosahq/glosa/pkg/testutils"
)

func newTestGraph(t *testing.T, tokenCount int) *Graph {
	t.Helper()
	idx := schema.NewIndex(testutils.NewTestSchema())
	return NewGraph(idx, testutils.NewTestTokens(tokenCount))
}

func TestGraph_CreateMention(t *testing.T) {
	tests := []struct {
		name       string
		typeTag    string
		tokenIDs   []int64
		provenance models.Provenance
		wantErr    error
	}{
		{
			name:    "valid confirmed mention",
			typeTag: "Actor", tokenIDs: []int64{1, 2},
			provenance: models.ProvenanceConfirmed,
		},
		{
			name:    "empty token list",
			typeTag: "Actor", tokenIDs: nil,
			provenance: models.ProvenanceConfirmed,
			wantErr:    models.ErrValidation,
		},
		{
			name:    "unknown mention type",
			typeTag: "Verb", tokenIDs: []int64{1},
			provenance: models.ProvenanceConfirmed,
			wantErr:    models.ErrValidation,
		},
		{
			name:    "foreign token",
			typeTag: "Actor", tokenIDs: []int64{99},
			provenance: models.ProvenanceConfirmed,
			wantErr:    models.ErrValidation,
		},
		{
			name:    "duplicate token",
			typeTag: "Actor", tokenIDs: []int64{1, 1},
			provenance: models.ProvenanceConfirmed,
			wantErr:    models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t, 10)
			m, err := g.CreateMention(tt.typeTag, tt.tokenIDs, tt.provenance)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typeTag, m.TypeTag)
			assert.Equal(t, tt.tokenIDs, m.TokenIDs)
			assert.Equal(t, tt.provenance, m.Provenance)
		})
	}
}

func TestGraph_CreateMention_TokenClaims(t *testing.T) {
	g := newTestGraph(t, 10)

	_, err := g.CreateMention("Actor", []int64{1, 2}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	// second confirmed mention on a claimed token conflicts
	_, err = g.CreateMention("Action", []int64{2, 3}, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrConflict)

	// suggestions may overlap confirmed mentions and each other
	_, err = g.CreateMention("Action", []int64{2, 3}, models.ProvenanceSuggestion)
	assert.NoError(t, err)
	_, err = g.CreateMention("Place", []int64{2}, models.ProvenanceSuggestion)
	assert.NoError(t, err)
}

func TestGraph_UpdateMention(t *testing.T) {
	g := newTestGraph(t, 10)

	actor, err := g.CreateMention("Actor", []int64{1, 2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	_, err = g.CreateMention("Action", []int64{5}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	// retokenize within free tokens
	updated, err := g.UpdateMention(actor.ID, MentionUpdate{TokenIDs: []int64{2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, updated.TokenIDs)

	// token 1 was released by the retokenize
	_, err = g.CreateMention("Place", []int64{1}, models.ProvenanceConfirmed)
	assert.NoError(t, err)

	// retokenize onto another confirmed mention's token conflicts
	_, err = g.UpdateMention(actor.ID, MentionUpdate{TokenIDs: []int64{5}})
	assert.ErrorIs(t, err, models.ErrConflict)

	// a mention may keep its own tokens on update
	_, err = g.UpdateMention(actor.ID, MentionUpdate{TokenIDs: []int64{3}})
	assert.NoError(t, err)

	// retag
	tag := "Place"
	updated, err = g.UpdateMention(actor.ID, MentionUpdate{TypeTag: &tag})
	require.NoError(t, err)
	assert.Equal(t, "Place", updated.TypeTag)

	// suggestions cannot be updated
	suggested, err := g.CreateMention("Actor", []int64{7}, models.ProvenanceSuggestion)
	require.NoError(t, err)
	_, err = g.UpdateMention(suggested.ID, MentionUpdate{TokenIDs: []int64{8}})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGraph_UpdateMention_EntityRules(t *testing.T) {
	g := newTestGraph(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	a2, err := g.CreateMention("Actor", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	entity, err := g.CreateEntity([]int64{a1.ID, a2.ID}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	// retagging a member of a multi-member entity breaks homogeneity
	tag := "Place"
	_, err = g.UpdateMention(a1.ID, MentionUpdate{TypeTag: &tag})
	assert.ErrorIs(t, err, models.ErrValidation)

	// detaching a member shrinks the entity
	var detach int64
	updated, err := g.UpdateMention(a1.ID, MentionUpdate{EntityID: &detach})
	require.NoError(t, err)
	assert.Zero(t, updated.EntityID)
	e, err := g.Entity(entity.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a2.ID}, e.MentionIDs)

	// a sole-member entity follows its mention's retag
	updated, err = g.UpdateMention(a2.ID, MentionUpdate{TypeTag: &tag})
	require.NoError(t, err)
	assert.Equal(t, "Place", updated.TypeTag)
	e, err = g.Entity(entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Place", e.TypeTag)

	// assigning a mention of another type to the entity fails
	action, err := g.CreateMention("Action", []int64{5}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	_, err = g.UpdateMention(action.ID, MentionUpdate{EntityID: &entity.ID})
	assert.ErrorIs(t, err, models.ErrValidation)

	// detaching the last member deletes the entity
	updated, err = g.UpdateMention(a2.ID, MentionUpdate{EntityID: &detach})
	require.NoError(t, err)
	assert.Zero(t, updated.EntityID)
	_, err = g.Entity(entity.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGraph_UpdateMention_RetagRevalidatesRelations(t *testing.T) {
	g := newTestGraph(t, 10)

	actor, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	_, err = g.CreateRelation("performs", actor.ID, action.ID, true, models.ProvenanceConfirmed)
	require.NoError(t, err)

	tag := "Place"
	_, err = g.UpdateMention(actor.ID, MentionUpdate{TypeTag: &tag})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGraph_DeleteMention_Cascade(t *testing.T) {
	g := newTestGraph(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	a2, err := g.CreateMention("Actor", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{3}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	entity, err := g.CreateEntity([]int64{a1.ID, a2.ID}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	rel, err := g.CreateRelation("performs", a1.ID, action.ID, true, models.ProvenanceConfirmed)
	require.NoError(t, err)

	require.NoError(t, g.DeleteMention(a1.ID))

	_, err = g.Mention(a1.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = g.Relation(rel.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	e, err := g.Entity(entity.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a2.ID}, e.MentionIDs)

	// token 1 is free again
	_, err = g.CreateMention("Place", []int64{1}, models.ProvenanceConfirmed)
	assert.NoError(t, err)

	// deleting the last member deletes the entity too
	require.NoError(t, g.DeleteMention(a2.ID))
	_, err = g.Entity(entity.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGraph_DeleteRejectsCandidates(t *testing.T) {
	g := newTestGraph(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	a2, err := g.CreateMention("Actor", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{3}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	suggested, err := g.CreateMention("Place", []int64{5}, models.ProvenanceSuggestion)
	require.NoError(t, err)
	entity, err := g.CreateEntity([]int64{a1.ID, a2.ID}, models.ProvenanceSuggestion)
	require.NoError(t, err)
	rel, err := g.CreateRelation("performs", a1.ID, action.ID, true, models.ProvenanceSuggestion)
	require.NoError(t, err)

	// pending candidates are only accepted or rejected, never deleted
	assert.ErrorIs(t, g.DeleteMention(suggested.ID), models.ErrValidation)
	assert.ErrorIs(t, g.DeleteEntity(entity.ID), models.ErrValidation)
	assert.ErrorIs(t, g.DeleteRelation(rel.ID), models.ErrValidation)

	// all three survive for the reconciler to resolve
	assert.Equal(t, 1, g.CountPending(models.KindMention))
	assert.Equal(t, 1, g.CountPending(models.KindEntity))
	assert.Equal(t, 1, g.CountPending(models.KindRelation))
}

func TestGraph_CreateEntity(t *testing.T) {
	g := newTestGraph(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	a2, err := g.CreateMention("Actor", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{3}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	// mixed types
	_, err = g.CreateEntity([]int64{a1.ID, action.ID}, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)

	// type does not anchor entities
	_, err = g.CreateEntity([]int64{action.ID}, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)

	// empty group
	_, err = g.CreateEntity(nil, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)

	// member ids form a set, repeats are rejected
	_, err = g.CreateEntity([]int64{a1.ID, a1.ID}, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)

	entity, err := g.CreateEntity([]int64{a1.ID, a2.ID}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	assert.Equal(t, "Actor", entity.TypeTag)

	m, err := g.Mention(a1.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ID, m.EntityID)

	// a confirmed mention cannot join a second entity
	_, err = g.CreateEntity([]int64{a1.ID}, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGraph_CreateEntity_SuggestionDoesNotClaimMembers(t *testing.T) {
	g := newTestGraph(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	_, err = g.CreateEntity([]int64{a1.ID}, models.ProvenanceSuggestion)
	require.NoError(t, err)

	m, err := g.Mention(a1.ID)
	require.NoError(t, err)
	assert.Zero(t, m.EntityID)
}

func TestGraph_DeleteEntity(t *testing.T) {
	g := newTestGraph(t, 10)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	entity, err := g.CreateEntity([]int64{a1.ID}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	require.NoError(t, g.DeleteEntity(entity.ID))

	m, err := g.Mention(a1.ID)
	require.NoError(t, err)
	assert.Zero(t, m.EntityID)

	assert.ErrorIs(t, g.DeleteEntity(entity.ID), models.ErrNotFound)
}

func TestGraph_CreateRelation(t *testing.T) {
	g := newTestGraph(t, 10)

	actor, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	place, err := g.CreateMention("Place", []int64{3}, models.ProvenanceConfirmed)
	require.NoError(t, err)

	// the schema's directedness wins over the request
	rel, err := g.CreateRelation("performs", actor.ID, action.ID, false, models.ProvenanceConfirmed)
	require.NoError(t, err)
	assert.True(t, rel.Directed)

	// undirected relation accepts swapped endpoints
	rel, err = g.CreateRelation("near", place.ID, actor.ID, false, models.ProvenanceConfirmed)
	require.NoError(t, err)
	assert.False(t, rel.Directed)

	// missing endpoint is a validation error
	_, err = g.CreateRelation("performs", actor.ID, 99, true, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)

	// no constraint for the type pair
	_, err = g.CreateRelation("performs", actor.ID, place.ID, true, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGraph_RowsRoundTrip(t *testing.T) {
	idx := schema.NewIndex(testutils.NewTestSchema())
	tokens := testutils.NewTestTokens(10)
	g := NewGraph(idx, tokens)

	a1, err := g.CreateMention("Actor", []int64{1}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	_, err = g.CreateEntity([]int64{a1.ID}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	_, err = g.CreateRelation("performs", a1.ID, action.ID, true, models.ProvenanceConfirmed)
	require.NoError(t, err)
	suggested, err := g.CreateMention("Place", []int64{5}, models.ProvenanceSuggestion)
	require.NoError(t, err)
	require.NoError(t, g.MarkSuggestionResolved(suggested.ID))

	rows := g.ExportRows()
	rebuilt := FromRows(idx, tokens, rows)

	assert.Equal(t, rows, rebuilt.ExportRows())

	// the resolved suggestion stays hidden but its id is not reused
	_, err = rebuilt.Mention(suggested.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	m, err := rebuilt.CreateMention("Place", []int64{6}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	assert.Greater(t, m.ID, suggested.ID)

	// token claims were rebuilt
	_, err = rebuilt.CreateMention("Place", []int64{1}, models.ProvenanceConfirmed)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGraph_Snapshot(t *testing.T) {
	g := newTestGraph(t, 5)
	documentUUID := uuid.New()

	a1, err := g.CreateMention("Actor", []int64{1, 2}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	action, err := g.CreateMention("Action", []int64{3}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	entity, err := g.CreateEntity([]int64{a1.ID}, models.ProvenanceConfirmed)
	require.NoError(t, err)
	_, err = g.CreateRelation("performs", a1.ID, action.ID, true, models.ProvenanceConfirmed)
	require.NoError(t, err)

	// suggestions are excluded from the export
	_, err = g.CreateMention("Place", []int64{5}, models.ProvenanceSuggestion)
	require.NoError(t, err)

	snapshot := g.Snapshot(documentUUID)

	assert.Equal(t, documentUUID.String(), snapshot.Document.ID)
	assert.Len(t, snapshot.Document.Tokens, 5)
	require.Len(t, snapshot.Mentions, 2)
	assert.Equal(t, "Actor", snapshot.Mentions[0].Tag)
	assert.Equal(t, []int64{1, 2}, snapshot.Mentions[0].Tokens)
	require.NotNil(t, snapshot.Mentions[0].Entity)
	assert.Equal(t, entity.ID, snapshot.Mentions[0].Entity.ID)
	assert.Nil(t, snapshot.Mentions[1].Entity)
	require.Len(t, snapshot.Relations, 1)
	assert.Equal(t, a1.ID, snapshot.Relations[0].HeadMention)
	assert.Equal(t, action.ID, snapshot.Relations[0].TailMention)
}
