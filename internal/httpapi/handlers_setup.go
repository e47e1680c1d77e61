package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"shareview/internal/auth"
	"shareview/internal/db"
	"shareview/internal/validate"
)

// handleSetup creates the first administrator and completes setup in one
// store transaction. The setup gate has already established that setup is
// still open; the transaction re-checks under its own lock, so a raced
// duplicate submission loses cleanly.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
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

	hash, err := auth.HashPassword(req.Password, auth.DefaultParams())
	if err != nil {
		s.Logger.Error("password hash failed", "err", err)
		writeInternalError(w)
		return
	}

	id, err := s.DB.CompleteSetup(r.Context(), req.Username, req.Email, hash)
	switch {
	case errors.Is(err, db.ErrSetupCompleted):
		writeDenial(w, r, denial{status: http.StatusForbidden, message: "setup already completed", redirect: "/"})
		return
	case errors.Is(err, db.ErrUsernameTaken):
		writeBadRequest(w, "username already exists")
		return
	case err != nil:
		s.Logger.Error("setup failed", "err", err, "remote_ip", clientIP(r))
		writeInternalError(w)
		return
	}

	s.Logger.Info("setup completed", "admin", req.Username, "admin_id", id, "remote_ip", clientIP(r))
	writeOK(w, map[string]any{"user": userPayload(id, req.Username, auth.RoleAdmin)})
}
