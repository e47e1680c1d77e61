package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"shareview/internal/auth"
	"shareview/internal/i18n"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "missing credentials")
		return
	}

	ctx := r.Context()
	u, ok, err := s.DB.GetUserByUsername(ctx, req.Username)
	if err != nil {
		s.Logger.Error("user lookup failed", "err", err, "remote_ip", clientIP(r))
		writeInternalError(w)
		return
	}
	// Inactive accounts fail exactly like unknown ones.
	if !ok || !u.Active {
		writeDenial(w, r, denial{status: http.StatusUnauthorized, message: "invalid credentials"})
		return
	}
	okPw, err := auth.VerifyPassword(req.Password, u.PassHash)
	if err != nil {
		s.Logger.Error("password verify failed", "err", err, "user", u.Username)
		writeInternalError(w)
		return
	}
	if !okPw {
		s.Logger.Warn("login rejected", "user", req.Username, "remote_ip", clientIP(r))
		writeDenial(w, r, denial{status: http.StatusUnauthorized, message: "invalid credentials"})
		return
	}

	tok, err := auth.NewToken(32)
	if err != nil {
		s.Logger.Error("token generation failed", "err", err)
		writeInternalError(w)
		return
	}
	if err := s.DB.CreateSession(ctx, tok, u, s.pickLang(r, ""), s.SessionTTL); err != nil {
		s.Logger.Error("session create failed", "err", err, "user", u.Username)
		writeInternalError(w)
		return
	}

	s.setSessionCookie(w, tok)
	s.Logger.Info("login", "user", u.Username, "remote_ip", clientIP(r))
	writeOK(w, map[string]any{"user": userPayload(u.ID, u.Username, u.Role)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	if sess != nil {
		if err := s.DB.DeleteSession(r.Context(), sess.Token); err != nil {
			s.Logger.Error("session delete failed", "err", err)
			writeInternalError(w)
			return
		}
		s.Logger.Info("logout", "user", sess.Username, "remote_ip", clientIP(r))
	}
	s.clearSessionCookie(w)
	writeOK(w, nil)
}

// handleAuthStatus reports authentication state without requiring it.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	tok, ok := readSessionCookie(r)
	if !ok {
		writeOK(w, map[string]any{"authenticated": false})
		return
	}
	sess, ok, err := s.DB.GetSession(r.Context(), tok)
	if err != nil {
		s.Logger.Error("session lookup failed", "err", err, "remote_ip", clientIP(r))
		writeInternalError(w)
		return
	}
	if !ok {
		s.clearSessionCookie(w)
		writeOK(w, map[string]any{"authenticated": false})
		return
	}
	writeOK(w, map[string]any{
		"authenticated": true,
		"user":          userPayload(sess.UserID, sess.Username, sess.Role),
	})
}

// handleLanguage stores the caller's language preference: on the session
// when one exists, always on a cookie so anonymous setup/login pages keep
// the choice too.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lang string `json:"lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	lang := strings.ToLower(strings.TrimSpace(req.Lang))
	if lang == "" || !s.Catalog.Has(lang) {
		writeBadRequest(w, "unknown language")
		return
	}

	if tok, ok := readSessionCookie(r); ok {
		if sess, ok, err := s.DB.GetSession(r.Context(), tok); err != nil {
			s.Logger.Error("session lookup failed", "err", err)
			writeInternalError(w)
			return
		} else if ok {
			if err := s.DB.SetSessionLang(r.Context(), sess.Token, lang); err != nil {
				s.Logger.Error("session language update failed", "err", err)
				writeInternalError(w)
				return
			}
		}
	}
	setLangCookie(w, lang)
	writeOK(w, map[string]any{"lang": lang})
}

// handleI18n serves the merged message catalog for the resolved language.
func (s *Server) handleI18n(w http.ResponseWriter, r *http.Request) {
	lang := s.pickLang(r, r.URL.Query().Get("lang"))
	writeOK(w, map[string]any{
		"lang":      lang,
		"languages": s.Catalog.Languages(),
		"messages":  s.Catalog.Messages(lang),
	})
}

// pickLang resolves the effective language: explicit value, then session,
// then cookie, then Accept-Language, then the default.
func (s *Server) pickLang(r *http.Request, explicit string) string {
	for _, cand := range []string{explicit, s.sessionLang(r), readLangCookie(r), r.Header.Get("accept-language")} {
		cand = strings.TrimSpace(cand)
		if i := strings.IndexAny(cand, ",;"); i > 0 {
			cand = cand[:i]
		}
		if cand != "" && s.Catalog.Has(cand) {
			return strings.ToLower(cand)
		}
	}
	return i18n.DefaultLang
}

func (s *Server) sessionLang(r *http.Request) string {
	if sess, ok := sessionFromContext(r.Context()); ok {
		return sess.Lang
	}
	tok, ok := readSessionCookie(r)
	if !ok {
		return ""
	}
	sess, ok, err := s.DB.GetSession(r.Context(), tok)
	if err != nil || !ok {
		return ""
	}
	return sess.Lang
}

func userPayload(id int64, username string, role auth.Role) map[string]any {
	return map[string]any{"id": id, "username": username, "role": role.String()}
}
