package models

import (
	"context"

	"github.com/google/uuid"
)

// Token is an immutable lexical unit of a document. Tokens are created once
// at import time and are never mutated or deleted while the document is
// active.
type Token struct {
	ID            int64  `json:"id"`
	Text          string `json:"text"`
	DocumentIndex int    `json:"document_index"`
	SentenceIndex int    `json:"sentence_index"`
	PosTag        string `json:"pos_tag"`
}

// TokenProvider returns the tokens of a document in strictly increasing
// DocumentIndex order.
type TokenProvider interface {
	GetTokens(ctx context.Context, documentUUID uuid.UUID) ([]Token, error)
}
