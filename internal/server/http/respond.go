package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/services"
)

// maxBodyBytes caps every request body the API decodes.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

type errorBody struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", common.BearerScheme)
	writeError(w, http.StatusUnauthorized, detail)
}

// writeServiceError maps service and auth errors onto status codes.
// notFound is the detail reported for common.ErrorNotFound.
func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *services.ValidationError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Fields)
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "Username already taken")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusBadRequest, "Already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeUnauthorized(w, "Incorrect username or password")
	case errors.Is(err, common.ErrTokenExpired):
		writeUnauthorized(w, "Token expired")
	case errors.Is(err, common.ErrorUnauthorized):
		writeUnauthorized(w, "Could not validate credentials")
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, "Not enough permissions")
	case errors.Is(err, common.ErrorNotFound):
		if notFound == "" {
			notFound = "Not found"
		}
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, services.ErrAttachmentsDisabled):
		writeError(w, http.StatusServiceUnavailable, "Attachments are disabled")
	default:
		h.deps.Logger.Error(r.Context(), "request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	limitBody(w, r)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &services.ValidationError{Fields: []services.FieldError{{Field: "body", Message: "invalid JSON: " + err.Error()}}}
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, &services.ValidationError{Fields: []services.FieldError{{Field: "id", Message: "must be an integer"}}}
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &services.ValidationError{Fields: []services.FieldError{{Field: name, Message: "must be an integer"}}}
	}
	return v, nil
}

func pageFrom(r *http.Request) (services.Page, error) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		return services.Page{}, err
	}
	limit, err := queryInt(r, "limit", services.DefaultPageLimit)
	if err != nil {
		return services.Page{}, err
	}
	return services.NewPage(skip, limit)
}

func optionalQueryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &services.ValidationError{Fields: []services.FieldError{{Field: name, Message: fmt.Sprintf("%q is not an integer", raw)}}}
	}
	return &v, nil
}
