package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shareview/internal/auth"
	"shareview/internal/db"
	"shareview/internal/validate"
)

type adminUserItem struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func adminUser(u db.User) adminUserItem {
	return adminUserItem{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.DB.ListUsers(r.Context())
	if err != nil {
		s.Logger.Error("list users failed", "err", err)
		writeInternalError(w)
		return
	}
	out := make([]adminUserItem, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser(u))
	}
	writeOK(w, map[string]any{"users": out})
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if err := validate.Username(req.Username); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := validate.Email(req.Email); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleUser.String()
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password, auth.DefaultParams())
	if err != nil {
		s.Logger.Error("password hash failed", "err", err)
		writeInternalError(w)
		return
	}
	id, err := s.DB.CreateUser(r.Context(), req.Username, req.Email, hash, role)
	if errors.Is(err, db.ErrUsernameTaken) {
		writeBadRequest(w, "username already exists")
		return
	}
	if err != nil {
		s.Logger.Error("create user failed", "err", err)
		writeInternalError(w)
		return
	}

	actor, _ := identityFromContext(r.Context())
	s.Logger.Info("user created", "user", req.Username, "role", role.String(), "by", actor.Username)
	writeOK(w, map[string]any{"id": id})
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req struct {
		Email  string `json:"email"`
		Role   string `json:"role"`
		Active *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if err := validate.Email(req.Email); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	target, ok, err := s.DB.GetUserByID(r.Context(), id)
	if err != nil {
		s.Logger.Error("user lookup failed", "err", err, "user_id", id)
		writeInternalError(w)
		return
	}
	if !ok {
		writeDenial(w, r, denial{status: http.StatusNotFound, message: "user not found"})
		return
	}
	// An omitted active field keeps the current value; a partial update
	// must not deactivate anyone by accident.
	active := target.Active
	if req.Active != nil {
		active = *req.Active
	}

	// An admin cannot demote or deactivate their own account; that is the
	// same self-lockout the delete rule prevents.
	actor, _ := identityFromContext(r.Context())
	if actor.ID == id && (!role.IsAdmin() || !active) {
		writeDenial(w, r, denial{status: http.StatusForbidden, message: "cannot demote or deactivate your own account"})
		return
	}

	err = s.DB.UpdateUser(r.Context(), id, req.Email, role, active)
	if errors.Is(err, db.ErrNotFound) {
		writeDenial(w, r, denial{status: http.StatusNotFound, message: "user not found"})
		return
	}
	if err != nil {
		s.Logger.Error("update user failed", "err", err, "user_id", id)
		writeInternalError(w)
		return
	}
	s.Logger.Info("user updated", "user", target.Username, "role", role.String(), "active", active, "by", actor.Username)
	writeOK(w, nil)
}

// handleAdminDeleteUser soft-deletes an account. Deleting your own account
// is forbidden, and so is deleting any admin-role account, even by another
// admin.
func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	actor, _ := identityFromContext(r.Context())
	if actor.ID == id {
		writeDenial(w, r, denial{status: http.StatusForbidden, message: "cannot delete your own account"})
		return
	}

	target, ok, err := s.DB.GetUserByID(r.Context(), id)
	if err != nil {
		s.Logger.Error("user lookup failed", "err", err, "user_id", id)
		writeInternalError(w)
		return
	}
	if !ok {
		writeDenial(w, r, denial{status: http.StatusNotFound, message: "user not found"})
		return
	}
	if target.Role.IsAdmin() {
		writeDenial(w, r, denial{status: http.StatusForbidden, message: "cannot delete an administrator account"})
		return
	}

	if err := s.DB.DeactivateUser(r.Context(), id); err != nil {
		s.Logger.Error("deactivate user failed", "err", err, "user_id", id)
		writeInternalError(w)
		return
	}
	s.Logger.Info("user deactivated", "user", target.Username, "by", actor.Username)
	writeOK(w, nil)
}

func (s *Server) handleAdminSetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}
	hash, err := auth.HashPassword(req.Password, auth.DefaultParams())
	if err != nil {
		s.Logger.Error("password hash failed", "err", err)
		writeInternalError(w)
		return
	}
	err = s.DB.SetUserPasswordHash(r.Context(), id, hash)
	if errors.Is(err, db.ErrNotFound) {
		writeDenial(w, r, denial{status: http.StatusNotFound, message: "user not found"})
		return
	}
	if err != nil {
		s.Logger.Error("set password failed", "err", err, "user_id", id)
		writeInternalError(w)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleAdminGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.DB.ListSettings(r.Context())
	if err != nil {
		s.Logger.Error("list settings failed", "err", err)
		writeInternalError(w)
		return
	}
	writeOK(w, map[string]any{"settings": settings})
}

func (s *Server) handleAdminPutSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if req.Key == "" {
		writeBadRequest(w, "key is required")
		return
	}
	// The completion flag only changes through the setup transaction or an
	// out-of-band store reset, never through this API.
	if req.Key == "setup_completed" {
		writeDenial(w, r, denial{status: http.StatusForbidden, message: "setting is read-only"})
		return
	}

	actor, _ := identityFromContext(r.Context())
	if err := s.DB.SetSetting(r.Context(), req.Key, req.Value, actor.ID); err != nil {
		s.Logger.Error("set setting failed", "err", err, "key", req.Key)
		writeInternalError(w)
		return
	}
	writeOK(w, nil)
}
