//go:build testutils

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosahq/glosa/pkg/models"
)

func TestPurgeDeleted(t *testing.T) {
	documentUUID, tokens := seedDocument(t, 4)
	schema := seedSchema(t)
	editStore := NewEditStoreDAO(testDB)

	edit := newTestEdit(documentUUID, schema.UUID)
	rows := &models.AnnotationRows{
		Mentions: []models.Mention{
			{
				ID:         1,
				TypeTag:    "Actor",
				TokenIDs:   []int64{tokens[0].ID},
				Provenance: models.ProvenanceConfirmed,
			},
		},
	}
	_, err := editStore.Create(testCtx, edit, rows)
	require.NoError(t, err)

	// kept around to prove the purge only touches deleted edits
	survivor := newTestEdit(documentUUID, schema.UUID)
	_, err = editStore.Create(testCtx, survivor, rows)
	require.NoError(t, err)

	err = editStore.SoftDelete(testCtx, edit.UUID)
	require.NoError(t, err)

	t.Run("retention window keeps recent deletes", func(t *testing.T) {
		err := PurgeDeleted(testCtx, testDB, 30)
		require.NoError(t, err)

		deleted, err := editStore.Get(testCtx, edit.UUID, true)
		require.NoError(t, err)
		assert.NotNil(t, deleted.DeletedAt)
	})

	t.Run("zero retention purges immediately", func(t *testing.T) {
		err := PurgeDeleted(testCtx, testDB, 0)
		require.NoError(t, err)

		_, err = editStore.Get(testCtx, edit.UUID, true)
		assert.ErrorIs(t, err, models.ErrNotFound)

		var mentions []MentionSchema
		err = testDB.NewSelect().
			Model(&mentions).
			Where("edit_uuid = ?", edit.UUID).
			Scan(testCtx)
		require.NoError(t, err)
		assert.Empty(t, mentions)

		// the live edit and its rows survive
		_, err = editStore.Get(testCtx, survivor.UUID, false)
		assert.NoError(t, err)
		loaded, err := NewAnnotationStoreDAO(testDB).LoadRows(testCtx, survivor.UUID)
		require.NoError(t, err)
		assert.Len(t, loaded.Mentions, 1)
	})
}
