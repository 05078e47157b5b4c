package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/glosahq/glosa/pkg/models"
)

type DocumentSchema struct {
	bun.BaseModel `bun:"table:document,alias:d"`

	UUID      uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"`
	CreatedAt time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	Name      string    `bun:",notnull"`
}

func (*DocumentSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type TokenSchema struct {
	bun.BaseModel `bun:"table:token,alias:t"`

	ID            int64           `bun:",pk,autoincrement"`
	DocumentUUID  uuid.UUID       `bun:"type:uuid,notnull"`
	Text          string          `bun:",notnull"`
	DocumentIndex int             `bun:",notnull"`
	SentenceIndex int             `bun:",notnull"`
	PosTag        string          `bun:","`
	Document      *DocumentSchema `bun:"rel:belongs-to,join:document_uuid=uuid,on_delete:cascade"`
}

func (*TokenSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

func (*TokenSchema) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*TokenSchema)(nil)).
		Index("token_document_uuid_idx").
		Column("document_uuid", "document_index").
		IfNotExists().
		Exec(ctx)
	return err
}

type SchemaSchema struct {
	bun.BaseModel `bun:"table:annotation_schema,alias:sch"`

	UUID      uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"`
	CreatedAt time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	Name      string    `bun:",notnull,unique"`
}

func (*SchemaSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type MentionTypeSchema struct {
	bun.BaseModel `bun:"table:schema_mention_type,alias:smt"`

	ID            int64         `bun:",pk,autoincrement"`
	SchemaUUID    uuid.UUID     `bun:"type:uuid,notnull"`
	Tag           string        `bun:",notnull"`
	AnchorsEntity bool          `bun:",notnull,default:false"`
	Schema        *SchemaSchema `bun:"rel:belongs-to,join:schema_uuid=uuid,on_delete:cascade"`
}

func (*MentionTypeSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type RelationTypeSchema struct {
	bun.BaseModel `bun:"table:schema_relation_type,alias:srt"`

	ID         int64         `bun:",pk,autoincrement"`
	SchemaUUID uuid.UUID     `bun:"type:uuid,notnull"`
	Tag        string        `bun:",notnull"`
	Schema     *SchemaSchema `bun:"rel:belongs-to,join:schema_uuid=uuid,on_delete:cascade"`
}

func (*RelationTypeSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type ConstraintSchema struct {
	bun.BaseModel `bun:"table:schema_constraint,alias:sc"`

	ID         int64         `bun:",pk,autoincrement"`
	SchemaUUID uuid.UUID     `bun:"type:uuid,notnull"`
	Relation   string        `bun:",notnull"`
	Head       string        `bun:",notnull"`
	Tail       string        `bun:",notnull"`
	Directed   bool          `bun:",notnull,default:false"`
	Schema     *SchemaSchema `bun:"rel:belongs-to,join:schema_uuid=uuid,on_delete:cascade"`
}

func (*ConstraintSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type DocumentEditSchema struct {
	bun.BaseModel `bun:"table:document_edit,alias:de"`

	UUID         uuid.UUID       `bun:",pk,type:uuid,default:gen_random_uuid()"`
	ID           int64           `bun:",autoincrement"` // used as a cursor for pagination
	CreatedAt    time.Time       `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time       `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	DeletedAt    time.Time       `bun:"type:timestamptz,soft_delete,nullzero"`
	DocumentUUID uuid.UUID       `bun:"type:uuid,notnull"`
	SchemaUUID   uuid.UUID       `bun:"type:uuid,notnull"`
	UserID       string          `bun:",notnull"`
	Stage        string          `bun:",notnull"`
	Document     *DocumentSchema `bun:"rel:belongs-to,join:document_uuid=uuid,on_delete:cascade"`
	Schema       *SchemaSchema   `bun:"rel:belongs-to,join:schema_uuid=uuid"`
}

var _ bun.BeforeAppendModelHook = (*DocumentEditSchema)(nil)

func (s *DocumentEditSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (*DocumentEditSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

func (*DocumentEditSchema) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*DocumentEditSchema)(nil)).
		Index("document_edit_user_id_idx").
		Column("user_id", "document_uuid").
		IfNotExists().
		Exec(ctx)
	return err
}

type MentionSchema struct {
	bun.BaseModel `bun:"table:mention,alias:m"`

	EditUUID   uuid.UUID           `bun:",pk,type:uuid"`
	MentionID  int64               `bun:",pk"`
	TypeTag    string              `bun:",notnull"`
	TokenIDs   []int64             `bun:",array"`
	EntityID   int64               `bun:",nullzero"`
	Provenance string              `bun:",notnull"`
	Resolved   bool                `bun:",notnull,default:false"`
	Edit       *DocumentEditSchema `bun:"rel:belongs-to,join:edit_uuid=uuid,on_delete:cascade"`
}

func (*MentionSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type EntitySchema struct {
	bun.BaseModel `bun:"table:entity,alias:e"`

	EditUUID   uuid.UUID           `bun:",pk,type:uuid"`
	EntityID   int64               `bun:",pk"`
	TypeTag    string              `bun:",notnull"`
	MentionIDs []int64             `bun:",array"`
	Provenance string              `bun:",notnull"`
	Resolved   bool                `bun:",notnull,default:false"`
	Edit       *DocumentEditSchema `bun:"rel:belongs-to,join:edit_uuid=uuid,on_delete:cascade"`
}

func (*EntitySchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type RelationSchema struct {
	bun.BaseModel `bun:"table:relation,alias:r"`

	EditUUID   uuid.UUID           `bun:",pk,type:uuid"`
	RelationID int64               `bun:",pk"`
	Tag        string              `bun:",notnull"`
	HeadID     int64               `bun:",notnull"`
	TailID     int64               `bun:",notnull"`
	Directed   bool                `bun:",notnull,default:false"`
	Provenance string              `bun:",notnull"`
	Resolved   bool                `bun:",notnull,default:false"`
	Edit       *DocumentEditSchema `bun:"rel:belongs-to,join:edit_uuid=uuid,on_delete:cascade"`
}

func (*RelationSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

type DocumentAccessSchema struct {
	bun.BaseModel `bun:"table:document_access,alias:da"`

	ID           int64           `bun:",pk,autoincrement"`
	UserID       string          `bun:",notnull"`
	DocumentUUID uuid.UUID       `bun:"type:uuid,notnull"`
	Role         string          `bun:",notnull,default:'annotator'"`
	Document     *DocumentSchema `bun:"rel:belongs-to,join:document_uuid=uuid,on_delete:cascade"`
}

func (*DocumentAccessSchema) BeforeCreateTable(_ context.Context, _ *bun.CreateTableQuery) error {
	return nil
}

func (*DocumentAccessSchema) AfterCreateTable(ctx context.Context, query *bun.CreateTableQuery) error {
	_, err := query.DB().NewCreateIndex().
		Model((*DocumentAccessSchema)(nil)).
		Index("document_access_user_id_idx").
		Column("user_id", "document_uuid").
		IfNotExists().
		Exec(ctx)
	return err
}

// tableList orders tables leaves-first; CreateSchema iterates in reverse so
// tables referenced by foreign keys are created before their dependents.
var tableList = []bun.BeforeCreateTableHook{
	&DocumentAccessSchema{},
	&RelationSchema{},
	&EntitySchema{},
	&MentionSchema{},
	&DocumentEditSchema{},
	&ConstraintSchema{},
	&RelationTypeSchema{},
	&MentionTypeSchema{},
	&TokenSchema{},
	&SchemaSchema{},
	&DocumentSchema{},
}

// CreateSchema creates the db schema if it does not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tableList) - 1; i >= 0; i-- {
		schema := tableList[i]
		_, err := db.NewCreateTable().
			Model(schema).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			// bun still trying to create indexes despite IfNotExists flag
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("error creating table for schema %T: %w", schema, err)
		}
	}

	// The partial unique index backs the "one active edit per (user,
	// document)" invariant at the DB level, closing the check-then-act race
	// between concurrent creates.
	_, err := db.ExecContext(
		ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS document_edit_active_uq "+
			"ON document_edit (user_id, document_uuid) WHERE deleted_at IS NULL",
	)
	if err != nil {
		return fmt.Errorf("error creating active edit unique index: %w", err)
	}

	return nil
}

// NewPostgresConn creates a new bun.DB connection to a postgres database
// using the provided DSN. The connection is configured to pool connections
// based on the number of PROCs available.
func NewPostgresConn(dsn string) (*bun.DB, error) {
	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func editSchemaToEdit(edit *DocumentEditSchema) *models.DocumentEdit {
	e := &models.DocumentEdit{
		UUID:         edit.UUID,
		ID:           edit.ID,
		CreatedAt:    edit.CreatedAt,
		UpdatedAt:    edit.UpdatedAt,
		DocumentUUID: edit.DocumentUUID,
		SchemaUUID:   edit.SchemaUUID,
		UserID:       edit.UserID,
		Stage:        models.EditStage(edit.Stage),
	}
	if !edit.DeletedAt.IsZero() {
		deletedAt := edit.DeletedAt
		e.DeletedAt = &deletedAt
	}
	return e
}
