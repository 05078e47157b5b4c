package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/testutils"
)

type testEnv struct {
	svc          *Service
	appState     *models.AppState
	schema       *models.AnnotationSchema
	documentUUID uuid.UUID
	edits        *testutils.FakeEditStore
	annotations  *testutils.FakeAnnotationStore
	access       *testutils.FakeAccessControl
	inference    *testutils.FakeInferenceClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	annotationSchema := testutils.NewTestSchema()
	documentUUID := uuid.New()

	tokens := testutils.NewFakeTokenProvider()
	tokens.Tokens[documentUUID] = testutils.NewTestTokens(10)

	annotations := testutils.NewFakeAnnotationStore()
	edits := testutils.NewFakeEditStore(annotations)
	access := &testutils.FakeAccessControl{AllowAll: true}
	inference := &testutils.FakeInferenceClient{}

	appState := &models.AppState{
		EditStore:       edits,
		AnnotationStore: annotations,
		SchemaStore:     testutils.NewFakeSchemaStore(annotationSchema),
		TokenProvider:   tokens,
		AccessControl:   access,
		Inference:       inference,
	}

	return &testEnv{
		svc:          NewService(appState),
		appState:     appState,
		schema:       annotationSchema,
		documentUUID: documentUUID,
		edits:        edits,
		annotations:  annotations,
		access:       access,
		inference:    inference,
	}
}

// mustCreate opens an edit for the user, seeded with whatever the fake
// inference client is configured to propose.
func (env *testEnv) mustCreate(t *testing.T, userID string) *models.DocumentEdit {
	t.Helper()
	edit, err := env.svc.Create(context.Background(), env.documentUUID, userID, env.schema.UUID)
	require.NoError(t, err)
	return edit
}

// mustAdvance walks the edit through its stages until the target stage,
// rejecting all pending candidates on the way.
func (env *testEnv) mustAdvance(t *testing.T, edit *models.DocumentEdit, target models.EditStage) {
	t.Helper()
	ctx := context.Background()
	for edit.Stage != target {
		for _, kind := range []models.CandidateKind{
			models.KindMention, models.KindEntity, models.KindRelation,
		} {
			env.rejectAll(t, edit, kind)
		}
		next, ok := edit.Stage.Next()
		require.True(t, ok)
		updated, err := env.svc.Advance(ctx, edit.UUID, next, edit.UserID)
		require.NoError(t, err)
		*edit = *updated
	}
}

func (env *testEnv) rejectAll(t *testing.T, edit *models.DocumentEdit, kind models.CandidateKind) {
	t.Helper()
	ctx := context.Background()
	rows, err := env.svc.PendingCandidates(ctx, edit.UUID, edit.UserID, kind)
	require.NoError(t, err)
	var ids []int64
	for _, m := range rows.Mentions {
		ids = append(ids, m.ID)
	}
	for _, e := range rows.Entities {
		ids = append(ids, e.ID)
	}
	for _, r := range rows.Relations {
		ids = append(ids, r.ID)
	}
	for _, id := range ids {
		require.NoError(t, env.svc.RejectCandidate(ctx, edit.UUID, edit.UserID, id))
	}
}
