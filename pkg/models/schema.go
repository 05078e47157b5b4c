package models

import (
	"context"

	"github.com/google/uuid"
)

// MentionType is an allowed span tag. AnchorsEntity controls whether mentions
// of this type may be clustered into entities.
type MentionType struct {
	Tag           string `json:"tag"`
	AnchorsEntity bool   `json:"anchors_entity"`
}

// RelationType is an allowed link tag.
type RelationType struct {
	Tag string `json:"tag"`
}

// Constraint is an allowed (relation type, head type, tail type, directedness)
// combination.
type Constraint struct {
	Relation string `json:"relation"`
	Head     string `json:"head"`
	Tail     string `json:"tail"`
	Directed bool   `json:"directed"`
}

// AnnotationSchema is a team's annotation schema. Schemas are fixed once any
// project uses them and are treated as immutable here.
type AnnotationSchema struct {
	UUID          uuid.UUID      `json:"uuid"`
	Name          string         `json:"name"`
	MentionTypes  []MentionType  `json:"mention_types"`
	RelationTypes []RelationType `json:"relation_types"`
	Constraints   []Constraint   `json:"constraints"`
}

type SchemaStore interface {
	Get(ctx context.Context, schemaUUID uuid.UUID) (*AnnotationSchema, error)
}
