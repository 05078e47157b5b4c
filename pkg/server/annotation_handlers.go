package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/glosahq/glosa/pkg/annotation"
	"github.com/glosahq/glosa/pkg/workflow"
)

type CreateMentionRequest struct {
	TypeTag  string  `json:"type_tag" validate:"required"`
	TokenIDs []int64 `json:"token_ids" validate:"required,min=1"`
}

type UpdateMentionRequest struct {
	TypeTag  *string `json:"type_tag,omitempty"`
	TokenIDs []int64 `json:"token_ids,omitempty"`
	EntityID *int64  `json:"entity_id,omitempty"`
}

type CreateEntityRequest struct {
	MentionIDs []int64 `json:"mention_ids" validate:"required,min=1"`
}

type CreateRelationRequest struct {
	Tag      string `json:"tag" validate:"required"`
	HeadID   int64  `json:"head_id" validate:"required"`
	TailID   int64  `json:"tail_id" validate:"required"`
	Directed bool   `json:"directed"`
}

func CreateMentionHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		var request CreateMentionRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		mention, err := svc.CreateMention(
			r.Context(), editUUID, userID, request.TypeTag, request.TokenIDs,
		)
		if err != nil {
			renderError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		if err := encodeJSON(w, mention); err != nil {
			renderError(w, err)
			return
		}
	}
}

func UpdateMentionHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		mentionID := parseIDFromURL(r, w, "mentionID")
		if mentionID < 0 {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		var request UpdateMentionRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		mention, err := svc.UpdateMention(
			r.Context(), editUUID, userID, mentionID, annotation.MentionUpdate{
				TypeTag:  request.TypeTag,
				TokenIDs: request.TokenIDs,
				EntityID: request.EntityID,
			},
		)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, mention); err != nil {
			renderError(w, err)
			return
		}
	}
}

func DeleteMentionHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		mentionID := parseIDFromURL(r, w, "mentionID")
		if mentionID < 0 {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		if err := svc.DeleteMention(r.Context(), editUUID, userID, mentionID); err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, OKResponse); err != nil {
			renderError(w, err)
			return
		}
	}
}

func CreateEntityHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		var request CreateEntityRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		entity, err := svc.CreateEntity(r.Context(), editUUID, userID, request.MentionIDs)
		if err != nil {
			renderError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		if err := encodeJSON(w, entity); err != nil {
			renderError(w, err)
			return
		}
	}
}

func DeleteEntityHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		entityID := parseIDFromURL(r, w, "entityID")
		if entityID < 0 {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		if err := svc.DeleteEntity(r.Context(), editUUID, userID, entityID); err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, OKResponse); err != nil {
			renderError(w, err)
			return
		}
	}
}

func CreateRelationHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		var request CreateRelationRequest
		if err := decodeAndValidateJSON(r, &request); err != nil {
			renderError(w, err)
			return
		}

		relation, err := svc.CreateRelation(
			r.Context(), editUUID, userID,
			request.Tag, request.HeadID, request.TailID, request.Directed,
		)
		if err != nil {
			renderError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		if err := encodeJSON(w, relation); err != nil {
			renderError(w, err)
			return
		}
	}
}

func DeleteRelationHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		relationID := parseIDFromURL(r, w, "relationID")
		if relationID < 0 {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		if err := svc.DeleteRelation(r.Context(), editUUID, userID, relationID); err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, OKResponse); err != nil {
			renderError(w, err)
			return
		}
	}
}

func GetSnapshotHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editUUID := parseUUIDFromURL(r, w, "editUUID")
		if editUUID == uuid.Nil {
			return
		}
		userID := userIDFromRequest(r, w)
		if userID == "" {
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), editUUID, userID)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := encodeJSON(w, snapshot); err != nil {
			renderError(w, err)
			return
		}
	}
}
