package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopfront/apiserver/internal/apperr"
	"github.com/shopfront/apiserver/internal/services"
)

const msgInvalidRequest = "invalid request"

var jsonTrue = []byte("true")

// UserHandler exposes the account service over HTTP.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// AccountRouter registers the account routes on r, which is expected to be
// mounted at /api.
func AccountRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Post("/users", handler.Register)
	r.Route("/user", func(r chi.Router) {
		r.Post("/login", handler.Login)
		r.With(authMiddleware).Get("/profile", handler.GetProfile)
		r.With(authMiddleware).Put("/profile", handler.UpdateProfile)
		r.With(authMiddleware, handler.requireAdmin).Get("/", handler.ListUsers)
		r.Route("/{userID}", func(r chi.Router) {
			r.Use(authMiddleware, handler.requireAdmin)
			r.Get("/", handler.GetUserByID)
			r.Put("/", handler.UpdateUser)
			r.Delete("/", handler.DeleteUser)
		})
	})
}

// Login verifies credentials and returns the user with a token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	summary, err := h.userService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Register creates an account and returns it with a token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	summary, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgTokenFailed)
		return
	}

	summary, err := h.userService.GetProfile(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgTokenFailed)
		return
	}

	var req services.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	summary, err := h.userService.UpdateProfile(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	users, err := h.userService.ListUsers(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	result, err := h.userService.DeleteUser(r.Context(), caller, chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	user, err := h.userService.GetUserByID(r.Context(), caller, chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AdminUpdateRequest is the body of PUT /api/user/{id}. IsAdmin is kept raw
// so that only the JSON literal true grants the flag.
type AdminUpdateRequest struct {
	Name    *string         `json:"name"`
	Email   *string         `json:"email"`
	IsAdmin json.RawMessage `json:"isAdmin"`
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFromContext(r.Context())

	var req AdminUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	summary, err := h.userService.UpdateUser(r.Context(), caller, chi.URLParam(r, "userID"), services.AdminUserUpdate{
		Name:    req.Name,
		Email:   req.Email,
		IsAdmin: bytes.Equal(bytes.TrimSpace(req.IsAdmin), jsonTrue),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// requireAdmin reloads the caller and rejects non-admins. It must run after
// the auth middleware.
func (h *UserHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, msgTokenFailed)
			return
		}

		caller, err := h.userService.Authorize(r.Context(), caller.ID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				writeError(w, http.StatusUnauthorized, msgTokenFailed)
				return
			}
			writeServiceError(w, err)
			return
		}
		if !caller.IsAdmin {
			writeError(w, http.StatusForbidden, "not authorized as an admin")
			return
		}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
	})
}

