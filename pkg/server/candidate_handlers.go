package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/models"
	"github.com/glosahq/glosa/pkg/workflow"
)

// GetCandidatesHandler lists the pending candidates of one kind, selected
// with the kind query parameter.
func GetCandidatesHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		kind := models.CandidateKind(r.URL.Query().Get("kind"))
		rows, err := svc.PendingCandidates(r.Context(), editUUID, userID, kind)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, rows); err != nil {
			renderError(w, err)
			return
		}
	}
}

// AcceptCandidateHandler promotes a pending candidate into a confirmed
// annotation and returns the confirmed clone.
func AcceptCandidateHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		candidateID := parseIDFromURL(r, w, "candidateID")
		if candidateID < 0 {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		clone, err := svc.AcceptCandidate(r.Context(), editUUID, userID, candidateID)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, clone); err != nil {
			renderError(w, err)
			return
		}
	}
}

func RejectCandidateHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		candidateID := parseIDFromURL(r, w, "candidateID")
		if candidateID < 0 {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		if err := svc.RejectCandidate(r.Context(), editUUID, userID, candidateID); err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, OKResponse); err != nil {
			renderError(w, err)
			return
		}
	}
}
