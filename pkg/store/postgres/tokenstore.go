package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/glosahq/glosa/pkg/models"
)

var _ models.TokenProvider = &TokenStoreDAO{}

type TokenStoreDAO struct {
	db *bun.DB
}

func NewTokenStoreDAO(db *bun.DB) *TokenStoreDAO {
	return &TokenStoreDAO{
		db: db,
	}
}

// GetTokens returns the document's tokens in document order. An unknown
// document yields NotFoundError rather than an empty token list, since a
// document without tokens cannot be annotated anyway.
func (dao *TokenStoreDAO) GetTokens(
	ctx context.Context,
	documentUUID uuid.UUID,
) ([]models.Token, error) {
	var tokenRows []TokenSchema
	err := dao.db.NewSelect().
		Model(&tokenRows).
		Where("document_uuid = ?", documentUUID).
		Order("document_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	if len(tokenRows) == 0 {
		return nil, models.NewNotFoundError("document " + documentUUID.String())
	}

	tokens := make([]models.Token, len(tokenRows))
	for i, t := range tokenRows {
		tokens[i] = models.Token{
			ID:            t.ID,
			Text:          t.Text,
			DocumentIndex: t.DocumentIndex,
			SentenceIndex: t.SentenceIndex,
			PosTag:        t.PosTag,
		}
	}

	return tokens, nil
}
