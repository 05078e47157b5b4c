package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/glosahq/glosa/pkg/auth"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/workflow"
)

const ReadHeaderTimeout = 5 * time.Second

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) *http.Server {
	router := setupRouter(appState)
	return &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			appState.Config.Server.Host,
			appState.Config.Server.Port,
		),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

func setupRouter(appState *models.AppState) *chi.Mux {
	svc := workflow.NewService(appState)

	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(SendVersion)
	router.Use(middleware.Heartbeat("/healthz"))

	if appState.Config.Auth.Required {
		log.Info("JWT authentication required")
		router.Use(auth.JWTVerifier(appState.Config))
		router.Use(jwtauth.Authenticator)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents/{documentUUID}", func(r chi.Router) {
			r.Post("/edits", CreateEditHandler(svc))
		})
		r.Route("/edits/{editUUID}", func(r chi.Router) {
			r.Get("/", GetEditHandler(svc))
			r.Delete("/", DeleteEditHandler(svc))
			r.Post("/advance", AdvanceEditHandler(svc))
			r.Post("/overtake", OvertakeEditHandler(svc))

			r.Post("/mentions", CreateMentionHandler(svc))
			r.Route("/mentions/{mentionID}", func(r chi.Router) {
				r.Patch("/", UpdateMentionHandler(svc))
				r.Delete("/", DeleteMentionHandler(svc))
			})

			r.Post("/entities", CreateEntityHandler(svc))
			r.Delete("/entities/{entityID}", DeleteEntityHandler(svc))

			r.Post("/relations", CreateRelationHandler(svc))
			r.Delete("/relations/{relationID}", DeleteRelationHandler(svc))

			r.Get("/candidates", GetCandidatesHandler(svc))
			r.Route("/candidates/{candidateID}", func(r chi.Router) {
				r.Post("/accept", AcceptCandidateHandler(svc))
				r.Post("/reject", RejectCandidateHandler(svc))
			})

			r.Get("/snapshot", GetSnapshotHandler(svc))
		})
	})

	return router
}
