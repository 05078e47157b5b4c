// Package schema provides a read-only constraint index over a fixed
// annotation schema: the valid mention types, relation types, and allowed
// (relation, head, tail, directedness) triples.
package schema

import (
	"fmt"

	"github.com/glosahq/glosa/pkg/models"
)

// Index is an immutable view of one annotation schema. Build it once with
// NewIndex; it is safe for concurrent reads and may be shared across
// sessions.
type Index struct {
	mentionTypes  map[string]models.MentionType
	relationTypes map[string]models.RelationType
	// constraints in authored order; first match wins
	constraints []models.Constraint
}

func NewIndex(s *models.AnnotationSchema) *Index {
	idx := &Index{
		mentionTypes:  make(map[string]models.MentionType, len(s.MentionTypes)),
		relationTypes: make(map[string]models.RelationType, len(s.RelationTypes)),
		constraints:   make([]models.Constraint, len(s.Constraints)),
	}
	for _, mt := range s.MentionTypes {
		idx.mentionTypes[mt.Tag] = mt
	}
	for _, rt := range s.RelationTypes {
		idx.relationTypes[rt.Tag] = rt
	}
	copy(idx.constraints, s.Constraints)
	return idx
}

// ResolveMentionType resolves a mention type tag. Returns NotFoundError if
// the tag is absent from the schema.
func (idx *Index) ResolveMentionType(tag string) (models.MentionType, error) {
	mt, ok := idx.mentionTypes[tag]
	if !ok {
		return models.MentionType{}, models.NewNotFoundError("mention type " + tag)
	}
	return mt, nil
}

// ResolveRelationType resolves a relation type tag.
func (idx *Index) ResolveRelationType(tag string) (models.RelationType, error) {
	rt, ok := idx.relationTypes[tag]
	if !ok {
		return models.RelationType{}, models.NewNotFoundError("relation type " + tag)
	}
	return rt, nil
}

// ResolveRelationConstraint finds the schema constraint matching a relation
// request. It first attempts an exact ordered match with the requested
// directedness, then an ordered match with the schema's own directedness
// (the schema is authoritative over directionality). If none is found and
// the request is undirected, it retries with head and tail swapped against
// undirected schema entries, since an undirected relation type may be
// authored with an arbitrary head/tail ordering. A directed request never
// falls back to a symmetric entry.
func (idx *Index) ResolveRelationConstraint(
	relationTag, headTypeTag, tailTypeTag string,
	directed bool,
) (models.Constraint, error) {
	if _, ok := idx.relationTypes[relationTag]; !ok {
		return models.Constraint{}, models.NewNotFoundError("relation type " + relationTag)
	}

	for _, c := range idx.constraints {
		if c.Relation == relationTag && c.Head == headTypeTag && c.Tail == tailTypeTag &&
			c.Directed == directed {
			return c, nil
		}
	}

	for _, c := range idx.constraints {
		if c.Relation == relationTag && c.Head == headTypeTag && c.Tail == tailTypeTag {
			return c, nil
		}
	}

	if !directed {
		for _, c := range idx.constraints {
			if c.Relation == relationTag && c.Head == tailTypeTag && c.Tail == headTypeTag &&
				!c.Directed {
				return c, nil
			}
		}
	}

	return models.Constraint{}, models.NewNotFoundError(
		fmt.Sprintf(
			"constraint (%s, %s, %s, directed=%t)",
			relationTag, headTypeTag, tailTypeTag, directed,
		),
	)
}
