//go:build testutils

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosahq/glosa/pkg/models"
)

func TestAnnotationStoreDAO_SaveAndLoadRows(t *testing.T) {
	documentUUID, tokens := seedDocument(t, 6)
	schema := seedSchema(t)
	editStore := NewEditStoreDAO(testDB)
	annotationStore := NewAnnotationStoreDAO(testDB)

	edit := newTestEdit(documentUUID, schema.UUID)
	_, err := editStore.Create(testCtx, edit, nil)
	require.NoError(t, err)

	empty, err := annotationStore.LoadRows(testCtx, edit.UUID)
	require.NoError(t, err)
	assert.Empty(t, empty.Mentions)
	assert.Empty(t, empty.Entities)
	assert.Empty(t, empty.Relations)

	rows := &models.AnnotationRows{
		Mentions: []models.Mention{
			{
				ID:         1,
				TypeTag:    "Actor",
				TokenIDs:   []int64{tokens[0].ID, tokens[1].ID},
				EntityID:   1,
				Provenance: models.ProvenanceConfirmed,
			},
			{
				ID:         2,
				TypeTag:    "Action",
				TokenIDs:   []int64{tokens[2].ID},
				Provenance: models.ProvenanceSuggestion,
				Resolved:   true,
			},
		},
		Entities: []models.Entity{
			{
				ID:         1,
				TypeTag:    "Actor",
				MentionIDs: []int64{1},
				Provenance: models.ProvenanceConfirmed,
			},
		},
		Relations: []models.Relation{
			{
				ID:         1,
				Tag:        "performs",
				HeadID:     1,
				TailID:     2,
				Directed:   true,
				Provenance: models.ProvenanceConfirmed,
			},
		},
	}

	err = annotationStore.SaveRows(testCtx, edit.UUID, rows)
	require.NoError(t, err)

	loaded, err := annotationStore.LoadRows(testCtx, edit.UUID)
	require.NoError(t, err)
	assert.Equal(t, rows.Mentions, loaded.Mentions)
	assert.Equal(t, rows.Entities, loaded.Entities)
	assert.Equal(t, rows.Relations, loaded.Relations)

	t.Run("save replaces previous rows", func(t *testing.T) {
		smaller := &models.AnnotationRows{
			Mentions: []models.Mention{rows.Mentions[0]},
		}
		err := annotationStore.SaveRows(testCtx, edit.UUID, smaller)
		require.NoError(t, err)

		loaded, err := annotationStore.LoadRows(testCtx, edit.UUID)
		require.NoError(t, err)
		assert.Len(t, loaded.Mentions, 1)
		assert.Empty(t, loaded.Entities)
		assert.Empty(t, loaded.Relations)
	})

	t.Run("rows are scoped to their edit", func(t *testing.T) {
		other := newTestEdit(documentUUID, schema.UUID)
		_, err := editStore.Create(testCtx, other, nil)
		require.NoError(t, err)

		loaded, err := annotationStore.LoadRows(testCtx, other.UUID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Mentions)
	})
}
