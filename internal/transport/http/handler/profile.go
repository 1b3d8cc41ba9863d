package handler

import (
	"encoding/json"
	"net/http"

	profileapp "github.com/campus-connect/api/internal/application/profile"
	"github.com/campus-connect/api/internal/domain"
	"github.com/campus-connect/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// maxAvatarSize caps avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

// ProfileHandler handles profile CRUD and avatar uploads. All routes sit
// behind the bearer-token middleware; writes are owner-only.
type ProfileHandler struct {
	svc profileapp.Service
}

func NewProfileHandler(svc profileapp.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// Create handles POST /v1/profiles — the identity provider's signup hook
// provisioning the profile row for the authenticated account.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req profileapp.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, profileStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /v1/profiles/{id}.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, profileStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /v1/profiles/{id}. Only the owner may update.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "id")
	if claims.UserID != userID {
		writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Update(r.Context(), userID, req)
	if err != nil {
		writeError(w, profileStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadAvatar handles POST /v1/profiles/{id}/avatar with a multipart "avatar" part.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "id")
	if claims.UserID != userID {
		writeError(w, http.StatusForbidden, domain.ErrForbidden.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing avatar file")
		return
	}
	defer file.Close()

	p, err := h.svc.UploadAvatar(r.Context(), userID, file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, profileStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}
