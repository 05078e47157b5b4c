package models

import (
	"github.com/uptrace/bun"

	"github.com/glosahq/glosa/config"
)

// AppState is a struct that holds the stores and configuration. It is used
// to pass these to the various handlers and services.
type AppState struct {
	Config *config.Config
	DB     *bun.DB

	EditStore       EditStore
	AnnotationStore AnnotationStore
	SchemaStore     SchemaStore
	TokenProvider   TokenProvider
	AccessControl   AccessControl
	Inference       InferenceClient
}
