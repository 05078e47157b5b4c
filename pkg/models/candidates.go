package models

import (
	"context"

	"github.com/google/uuid"
)

// MentionSpan is a raw mention proposal from the inference boundary.
// Start and End are inclusive token document indexes, not token ids.
type MentionSpan struct {
	StartTokenDocumentIndex int    `json:"start_token_document_index"`
	EndTokenDocumentIndex   int    `json:"end_token_document_index"`
	Type                    string `json:"type"`
}

// RelationCandidate is a raw relation proposal between two mentions.
type RelationCandidate struct {
	Tag           string `json:"tag"`
	HeadMentionID int64  `json:"head_mention_id"`
	TailMentionID int64  `json:"tail_mention_id"`
}

// EntityGroup is a raw entity proposal listing the mentions it clusters.
type EntityGroup struct {
	MentionIDs []int64 `json:"mention_ids"`
}

// InferenceClient is the boundary to the external recommendation service.
// Calls are synchronous and sit on the request's critical path; failures and
// timeouts surface as UpstreamUnavailableError, never as validation errors.
type InferenceClient interface {
	ProposeMentions(ctx context.Context, documentUUID uuid.UUID, schema *AnnotationSchema, tokens []Token) ([]MentionSpan, error)
	ProposeRelations(ctx context.Context, documentUUID uuid.UUID, schema *AnnotationSchema, mentions []Mention) ([]RelationCandidate, error)
	ProposeEntityGroups(ctx context.Context, documentUUID uuid.UUID, schema *AnnotationSchema, mentions []Mention) ([]EntityGroup, error)
}
