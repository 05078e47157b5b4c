package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/internal"
	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/workflow"
)

var log = internal.GetLogger()

const OKResponse = "OK"

type CreateEditRequest struct {
	SchemaUUID uuid.UUID `json:"schema_uuid" validate:"required"`
}

type AdvanceEditRequest struct {
	Stage string `json:"stage" validate:"required"`
}

type OvertakeEditRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// EditResponse is an edit together with its pending candidate counts.
type EditResponse struct {
	Edit          *models.DocumentEdit         `json:"edit"`
	PendingCounts map[models.CandidateKind]int `json:"pending_counts,omitempty"`
}

// CreateEditHandler opens a new edit on a document for the acting user and
// seeds it with mention recommendations.
func CreateEditHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentUUID := parseUUIDFromURL(r, w, "documentUUID")
		if documentUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		var request CreateEditRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		edit, err := svc.Create(r.Context(), documentUUID, userID, request.SchemaUUID)
		if err != nil {
			renderError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		if err := encodeJSON(w, EditResponse{Edit: edit}); err != nil {
			renderError(w, err)
			return
		}
	}
}

func GetEditHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		edit, counts, err := svc.Get(r.Context(), editUUID, userID)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, EditResponse{Edit: edit, PendingCounts: counts}); err != nil {
			renderError(w, err)
			return
		}
	}
}

// AdvanceEditHandler moves an edit to the requested stage.
func AdvanceEditHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		var request AdvanceEditRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		edit, err := svc.Advance(r.Context(), editUUID, models.EditStage(request.Stage), userID)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, EditResponse{Edit: edit}); err != nil {
			renderError(w, err)
			return
		}
	}
}

// OvertakeEditHandler transfers ownership of an edit to the acting user.
func OvertakeEditHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}

		var request OvertakeEditRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		edit, err := svc.Overtake(r.Context(), editUUID, request.UserID)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, EditResponse{Edit: edit}); err != nil {
			renderError(w, err)
			return
		}
	}
}

// DeleteEditHandler soft deletes an edit. Deleting an already-deleted edit
// succeeds without effect.
func DeleteEditHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		if err := svc.SoftDelete(r.Context(), editUUID, userID); err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, OKResponse); err != nil {
			renderError(w, err)
			return
		}
	}
}
