package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/glosahq/glosa/pkg/models"
)

var _ models.AnnotationStore = &AnnotationStoreDAO{}

// AnnotationStoreDAO persists the annotation rows of an edit. Rows are
// written as a whole: SaveRows replaces the edit's mentions, entities and
// relations in one transaction, which keeps the stored state consistent with
// the in-memory graph it was exported from.
type AnnotationStoreDAO struct {
	db *bun.DB
}

func NewAnnotationStoreDAO(db *bun.DB) *AnnotationStoreDAO {
	return &AnnotationStoreDAO{
		db: db,
	}
}

func (dao *AnnotationStoreDAO) LoadRows(
	ctx context.Context,
	editUUID uuid.UUID,
) (*models.AnnotationRows, error) {
	var mentions []MentionSchema
	err := dao.db.NewSelect().
		Model(&mentions).
		Where("edit_uuid = ?", editUUID).
		Order("mention_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions: %w", err)
	}

	var entities []EntitySchema
	err = dao.db.NewSelect().
		Model(&entities).
		Where("edit_uuid = ?", editUUID).
		Order("entity_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}

	var relations []RelationSchema
	err = dao.db.NewSelect().
		Model(&relations).
		Where("edit_uuid = ?", editUUID).
		Order("relation_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load relations: %w", err)
	}

	rows := &models.AnnotationRows{
		Mentions:  make([]models.Mention, len(mentions)),
		Entities:  make([]models.Entity, len(entities)),
		Relations: make([]models.Relation, len(relations)),
	}
	for i := range mentions {
		rows.Mentions[i] = models.Mention{
			ID:         mentions[i].MentionID,
			TypeTag:    mentions[i].TypeTag,
			TokenIDs:   mentions[i].TokenIDs,
			EntityID:   mentions[i].EntityID,
			Provenance: models.Provenance(mentions[i].Provenance),
			Resolved:   mentions[i].Resolved,
		}
	}
	for i := range entities {
		rows.Entities[i] = models.Entity{
			ID:         entities[i].EntityID,
			TypeTag:    entities[i].TypeTag,
			MentionIDs: entities[i].MentionIDs,
			Provenance: models.Provenance(entities[i].Provenance),
			Resolved:   entities[i].Resolved,
		}
	}
	for i := range relations {
		rows.Relations[i] = models.Relation{
			ID:         relations[i].RelationID,
			Tag:        relations[i].Tag,
			HeadID:     relations[i].HeadID,
			TailID:     relations[i].TailID,
			Directed:   relations[i].Directed,
			Provenance: models.Provenance(relations[i].Provenance),
			Resolved:   relations[i].Resolved,
		}
	}

	return rows, nil
}

func (dao *AnnotationStoreDAO) SaveRows(
	ctx context.Context,
	editUUID uuid.UUID,
	rows *models.AnnotationRows,
) error {
	tx, err := dao.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx)

	if err := replaceAnnotationRows(ctx, tx, editUUID, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit annotation rows: %w", err)
	}

	return nil
}

func replaceAnnotationRows(
	ctx context.Context,
	tx bun.IDB,
	editUUID uuid.UUID,
	rows *models.AnnotationRows,
) error {
	for _, model := range []any{
		(*RelationSchema)(nil),
		(*EntitySchema)(nil),
		(*MentionSchema)(nil),
	} {
		_, err := tx.NewDelete().
			Model(model).
			Where("edit_uuid = ?", editUUID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear annotation rows: %w", err)
		}
	}

	return insertAnnotationRows(ctx, tx, editUUID, rows)
}

func insertAnnotationRows(
	ctx context.Context,
	tx bun.IDB,
	editUUID uuid.UUID,
	rows *models.AnnotationRows,
) error {
	if rows == nil {
		return nil
	}

	if len(rows.Mentions) > 0 {
		mentions := make([]MentionSchema, len(rows.Mentions))
		for i, m := range rows.Mentions {
			mentions[i] = MentionSchema{
				EditUUID:   editUUID,
				MentionID:  m.ID,
				TypeTag:    m.TypeTag,
				TokenIDs:   m.TokenIDs,
				EntityID:   m.EntityID,
				Provenance: string(m.Provenance),
				Resolved:   m.Resolved,
			}
		}
		if _, err := tx.NewInsert().Model(&mentions).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert mentions: %w", err)
		}
	}

	if len(rows.Entities) > 0 {
		entities := make([]EntitySchema, len(rows.Entities))
		for i, e := range rows.Entities {
			entities[i] = EntitySchema{
				EditUUID:   editUUID,
				EntityID:   e.ID,
				TypeTag:    e.TypeTag,
				MentionIDs: e.MentionIDs,
				Provenance: string(e.Provenance),
				Resolved:   e.Resolved,
			}
		}
		if _, err := tx.NewInsert().Model(&entities).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert entities: %w", err)
		}
	}

	if len(rows.Relations) > 0 {
		relations := make([]RelationSchema, len(rows.Relations))
		for i, r := range rows.Relations {
			relations[i] = RelationSchema{
				EditUUID:   editUUID,
				RelationID: r.ID,
				Tag:        r.Tag,
				HeadID:     r.HeadID,
				TailID:     r.TailID,
				Directed:   r.Directed,
				Provenance: string(r.Provenance),
				Resolved:   r.Resolved,
			}
		}
		if _, err := tx.NewInsert().Model(&relations).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert relations: %w", err)
		}
	}

	return nil
}
