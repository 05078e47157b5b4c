//go:build testutils

package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosahq/glosa/pkg/models"
)

func TestSchemaStoreDAO_Get(t *testing.T) {
	schema := seedSchema(t)
	schemaStore := NewSchemaStoreDAO(testDB)

	loaded, err := schemaStore.Get(testCtx, schema.UUID)
	require.NoError(t, err)
	assert.Equal(t, schema.UUID, loaded.UUID)
	assert.Equal(t, schema.Name, loaded.Name)
	assert.Equal(t, schema.MentionTypes, loaded.MentionTypes)
	assert.Equal(t, schema.RelationTypes, loaded.RelationTypes)
	assert.Equal(t, schema.Constraints, loaded.Constraints)

	_, err = schemaStore.Get(testCtx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTokenStoreDAO_GetTokens(t *testing.T) {
	documentUUID, tokens := seedDocument(t, 8)
	tokenStore := NewTokenStoreDAO(testDB)

	loaded, err := tokenStore.GetTokens(testCtx, documentUUID)
	require.NoError(t, err)
	require.Len(t, loaded, 8)
	assert.Equal(t, tokens, loaded)
	for i, token := range loaded {
		assert.Equal(t, i, token.DocumentIndex)
	}

	_, err = tokenStore.GetTokens(testCtx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccessStoreDAO(t *testing.T) {
	documentUUID, _ := seedDocument(t, 3)
	accessStore := NewAccessStoreDAO(testDB)

	grants := []DocumentAccessSchema{
		{UserID: "annie", DocumentUUID: documentUUID, Role: "annotator"},
		{UserID: "root", DocumentUUID: documentUUID, Role: RoleAdmin},
	}
	_, err := testDB.NewInsert().Model(&grants).Exec(testCtx)
	require.NoError(t, err)

	ok, err := accessStore.UserCanAccessDocument(testCtx, "annie", documentUUID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = accessStore.UserCanAccessDocument(testCtx, "stranger", documentUUID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = accessStore.CanAdminister(testCtx, "annie", documentUUID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = accessStore.CanAdminister(testCtx, "root", documentUUID)
	require.NoError(t, err)
	assert.True(t, ok)
}
