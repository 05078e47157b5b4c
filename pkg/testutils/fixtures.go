package testutils

import (
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/models"
)

// NewTestSchema returns a small schema exercising every schema feature:
// entity-anchoring and plain mention types, a directed and an undirected
// constraint.
func NewTestSchema() *models.AnnotationSchema {
	return &models.AnnotationSchema{
		UUID: uuid.New(),
		Name: "test-schema-" + gofakeit.LetterN(8),
		MentionTypes: []models.MentionType{
			{Tag: "Actor", AnchorsEntity: true},
			{Tag: "Action", AnchorsEntity: false},
			{Tag: "Place", AnchorsEntity: true},
		},
		RelationTypes: []models.RelationType{
			{Tag: "performs"},
			{Tag: "near"},
		},
		Constraints: []models.Constraint{
			{Relation: "performs", Head: "Actor", Tail: "Action", Directed: true},
			{Relation: "near", Head: "Actor", Tail: "Place", Directed: false},
		},
	}
}

// NewTestTokens tokenizes a generated sentence into n tokens with sequential
// ids and document indexes.
func NewTestTokens(n int) []models.Token {
	words := strings.Fields(gofakeit.Sentence(n))
	tokens := make([]models.Token, n)
	for i := 0; i < n; i++ {
		text := gofakeit.Word()
		if i < len(words) {
			text = words[i]
		}
		tokens[i] = models.Token{
			ID:            int64(i + 1),
			Text:          text,
			DocumentIndex: i,
			SentenceIndex: 0,
			PosTag:        "NN",
		}
	}
	return tokens
}
