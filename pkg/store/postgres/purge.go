package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// PurgeDeleted hard deletes edits that were soft deleted more than
// retentionDays ago, together with their annotation rows. A retention of
// zero purges every soft deleted edit immediately.
func PurgeDeleted(ctx context.Context, db *bun.DB, retentionDays int) error {
	log.Debugf("purging deleted edits")

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var editUUIDs []string
	err := db.NewSelect().
		Model((*DocumentEditSchema)(nil)).
		Column("uuid").
		WhereDeleted().
		Where("deleted_at < ?", cutoff).
		Scan(ctx, &editUUIDs)
	if err != nil {
		return fmt.Errorf("error selecting purgeable edits: %w", err)
	}
	if len(editUUIDs) == 0 {
		log.Debugf("no deleted edits to purge")
		return nil
	}

	for _, schema := range []any{
		(*RelationSchema)(nil),
		(*EntitySchema)(nil),
		(*MentionSchema)(nil),
	} {
		_, err := db.NewDelete().
			Model(schema).
			Where("edit_uuid IN (?)", bun.In(editUUIDs)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error purging rows from %T: %w", schema, err)
		}
	}

	_, err = db.NewDelete().
		Model((*DocumentEditSchema)(nil)).
		WhereDeleted().
		Where("deleted_at < ?", cutoff).
		ForceDelete().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error purging edits: %w", err)
	}

	log.Infof("purged %d deleted edits", len(editUUIDs))

	return nil
}
