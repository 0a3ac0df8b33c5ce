package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/dmitrijs2005/itemsapi/internal/server/services"
)

const healthPingTimeout = 2 * time.Second

type handlers struct {
	deps Deps
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type identityResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type itemResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	Price         *float64  `json:"price"`
	OwnerID       int64     `json:"owner_id"`
	HasAttachment bool      `json:"has_attachment"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newItemResponse(i *models.Item) itemResponse {
	return itemResponse{
		ID:            i.ID,
		Title:         i.Title,
		Description:   i.Description,
		Price:         i.Price,
		OwnerID:       i.OwnerID,
		HasAttachment: i.AttachmentKey != "",
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Info)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":      "ok",
		"database":    "connected",
		"api_version": common.APIVersion,
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if h.deps.DB == nil || h.deps.DB.PingContext(ctx) != nil {
		resp["status"] = "degraded"
		resp["database"] = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// login accepts an OAuth2 password-grant style form.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeServiceError(w, r, errBodyTooLarge, "")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	var missing []services.FieldError
	if username == "" {
		missing = append(missing, services.FieldError{Field: "username", Message: "is required"})
	}
	if password == "" {
		missing = append(missing, services.FieldError{Field: "password", Message: "is required"})
	}
	if len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, missing)
		return
	}

	token, err := h.deps.Users.Login(r.Context(), username, password)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, token)
}

func (h *handlers) registerUser(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	user, err := h.deps.Users.Register(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	users, err := h.deps.Users.List(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// me answers from the identity resolved by requireIdentity.
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	writeJSON(w, http.StatusOK, identityResponse{
		ID:       caller.ID,
		Email:    caller.Email,
		Username: caller.Username,
		Role:     caller.Role,
		IsActive: caller.IsActive,
	})
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	user, err := h.deps.Users.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	var in services.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	user, err := h.deps.Users.Update(r.Context(), callerFrom(r), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	user, err := h.deps.Users.Delete(r.Context(), callerFrom(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *handlers) createItem(w http.ResponseWriter, r *http.Request) {
	var in services.CreateItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	item, err := h.deps.Items.Create(r.Context(), callerFrom(r), in)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, newItemResponse(item))
}

func (h *handlers) listItems(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	ownerID, err := optionalQueryID(r, "owner_id")
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	items, err := h.deps.Items.List(r.Context(), page, ownerID)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	resp := make([]itemResponse, 0, len(items))
	for _, i := range items {
		resp = append(resp, newItemResponse(i))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	item, err := h.deps.Items.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, newItemResponse(item))
}

func (h *handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	var in services.UpdateItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	item, err := h.deps.Items.Update(r.Context(), callerFrom(r), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, newItemResponse(item))
}

func (h *handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	item, err := h.deps.Items.Delete(r.Context(), callerFrom(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, newItemResponse(item))
}

func (h *handlers) createAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	upload, err := h.deps.Items.CreateAttachmentUpload(r.Context(), callerFrom(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Item not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"item_id":    upload.ItemID,
		"key":        upload.Key,
		"upload_url": upload.URL,
	})
}

func (h *handlers) getAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	url, err := h.deps.Items.AttachmentURL(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Attachment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"download_url": url})
}
