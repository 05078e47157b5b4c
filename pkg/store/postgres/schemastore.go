package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/glosahq/glosa/pkg/models"
)

var _ models.SchemaStore = &SchemaStoreDAO{}

type SchemaStoreDAO struct {
	db *bun.DB
}

func NewSchemaStoreDAO(db *bun.DB) *SchemaStoreDAO {
	return &SchemaStoreDAO{
		db: db,
	}
}

// Get loads a schema with its mention types, relation types and constraints.
func (dao *SchemaStoreDAO) Get(
	ctx context.Context,
	schemaUUID uuid.UUID,
) (*models.AnnotationSchema, error) {
	schemaDB := &SchemaSchema{}
	err := dao.db.NewSelect().
		Model(schemaDB).
		Where("uuid = ?", schemaUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("schema " + schemaUUID.String())
		}
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	var mentionTypes []MentionTypeSchema
	err = dao.db.NewSelect().
		Model(&mentionTypes).
		Where("schema_uuid = ?", schemaUUID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get mention types: %w", err)
	}

	var relationTypes []RelationTypeSchema
	err = dao.db.NewSelect().
		Model(&relationTypes).
		Where("schema_uuid = ?", schemaUUID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get relation types: %w", err)
	}

	var constraints []ConstraintSchema
	err = dao.db.NewSelect().
		Model(&constraints).
		Where("schema_uuid = ?", schemaUUID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get constraints: %w", err)
	}

	schema := &models.AnnotationSchema{
		UUID:          schemaDB.UUID,
		Name:          schemaDB.Name,
		MentionTypes:  make([]models.MentionType, len(mentionTypes)),
		RelationTypes: make([]models.RelationType, len(relationTypes)),
		Constraints:   make([]models.Constraint, len(constraints)),
	}
	for i, mt := range mentionTypes {
		schema.MentionTypes[i] = models.MentionType{
			Tag:           mt.Tag,
			AnchorsEntity: mt.AnchorsEntity,
		}
	}
	for i, rt := range relationTypes {
		schema.RelationTypes[i] = models.RelationType{Tag: rt.Tag}
	}
	for i, c := range constraints {
		schema.Constraints[i] = models.Constraint{
			Relation: c.Relation,
			Head:     c.Head,
			Tail:     c.Tail,
			Directed: c.Directed,
		}
	}

	return schema, nil
}
