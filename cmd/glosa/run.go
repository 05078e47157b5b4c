package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/glosahq/glosa/config"
	"github.com/glosahq/glosa/pkg/inference"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/server"
	"github.com/glosahq/glosa/pkg/store/postgres"
)

const ErrPostgresDSNNotSet = "store.postgres.dsn must be set"

// run is the entrypoint for the glosa server
func run() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring glosa: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting glosa server version %s", config.VersionString)

	config.SetLogLevel(cfg)
	appState := NewAppState(cfg)

	srv := server.Create(appState)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

// NewAppState creates an AppState struct from the config file / ENV,
// connects to the database, and wires up the stores and the inference client
func NewAppState(cfg *config.Config) *models.AppState {
	if cfg.Store.Postgres.DSN == "" {
		log.Fatal(ErrPostgresDSNNotSet)
	}

	db, err := postgres.NewPostgresConn(cfg.Store.Postgres.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Log.Level == "debug" {
		pgDebugLogging(db)
	}

	if err := postgres.CreateSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to create database schema: %v", err)
	}

	appState := &models.AppState{
		Config:          cfg,
		DB:              db,
		EditStore:       postgres.NewEditStoreDAO(db),
		AnnotationStore: postgres.NewAnnotationStoreDAO(db),
		SchemaStore:     postgres.NewSchemaStoreDAO(db),
		TokenProvider:   postgres.NewTokenStoreDAO(db),
		AccessControl:   postgres.NewAccessStoreDAO(db),
		Inference:       inference.NewClient(cfg),
	}

	setupSignalHandler(appState)
	setupPurgeProcessor(context.Background(), appState)

	return appState
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// setupSignalHandler sets up a signal handler to close the database connection on termination
func setupSignalHandler(appState *models.AppState) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		if err := appState.DB.Close(); err != nil {
			log.Errorf("Error closing database connection: %v", err)
		}
		os.Exit(0)
	}()
}

// setupPurgeProcessor sets up a go routine to hard delete soft deleted edits
// at a regular interval. It's cancellable via the passed context.
// If Config.Purge.Every is 0, this function does nothing.
func setupPurgeProcessor(ctx context.Context, appState *models.AppState) {
	interval := appState.Config.Purge.Every
	if interval == 0 {
		log.Debug("purge delete processor disabled")
		return
	}

	log.Infof("Starting purge delete processor. Purging every %v", interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Stopping purge delete processor")
				return
			default:
				err := postgres.PurgeDeleted(ctx, appState.DB, appState.Config.Purge.RetentionDays)
				if err != nil {
					log.Errorf("error purging deleted records: %v", err)
				}
			}
			time.Sleep(interval)
		}
	}()
}
