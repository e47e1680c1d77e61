package httpapi

import (
	"context"
	"net/http"

	"shareview/internal/db"
)

type ctxKey int

const (
	ctxSession ctxKey = iota
	ctxIdentity
)

// sessionFromContext returns the session attached by requireUser.
func sessionFromContext(ctx context.Context) (*db.Session, bool) {
	s, ok := ctx.Value(ctxSession).(*db.Session)
	return s, ok
}

// identityFromContext returns the full account attached by requireAdmin.
func identityFromContext(ctx context.Context) (*db.User, bool) {
	u, ok := ctx.Value(ctxIdentity).(*db.User)
	return u, ok
}

// loadSession resolves the cookie token into a live session. The denial
// distinguishes a missing/expired session (401) from a store failure (500);
// the latter is logged here with full detail.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*db.Session, *denial) {
	tok, ok := readSessionCookie(r)
	if !ok {
		return nil, &denial{status: http.StatusUnauthorized, message: "not authenticated", redirect: "/login"}
	}
	sess, ok, err := s.DB.GetSession(r.Context(), tok)
	if err != nil {
		s.Logger.Error("session lookup failed", "err", err, "remote_ip", clientIP(r))
		return nil, &denial{status: http.StatusInternalServerError, message: "server error"}
	}
	if !ok {
		s.clearSessionCookie(w)
		return nil, &denial{status: http.StatusUnauthorized, message: "not authenticated", redirect: "/login"}
	}
	// Sliding 24h window: refresh expiry on use. Best effort.
	if err := s.DB.TouchSession(r.Context(), tok, s.SessionTTL); err != nil {
		s.Logger.Warn("session refresh failed", "err", err)
	}
	return sess, nil
}

// requireUser admits any authenticated caller and attaches the session to
// the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, d := s.loadSession(w, r)
		if d != nil {
			writeDenial(w, r, *d)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin admits only active admin accounts. The full identity is
// fetched once from the store and attached to the context so handlers do
// not look it up again. A store failure is reported as a server error,
// never conflated with Forbidden.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, d := s.loadSession(w, r)
		if d != nil {
			writeDenial(w, r, *d)
			return
		}
		u, ok, err := s.DB.GetUserByID(r.Context(), sess.UserID)
		if err != nil {
			s.Logger.Error("identity lookup failed", "err", err, "user_id", sess.UserID, "remote_ip", clientIP(r))
			writeInternalError(w)
			return
		}
		if !ok || !u.Active || !u.Role.IsAdmin() {
			s.Logger.Warn("admin access denied", "user", sess.Username, "remote_ip", clientIP(r))
			writeDenial(w, r, denial{status: http.StatusForbidden, message: "admin access required"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		ctx = context.WithValue(ctx, ctxIdentity, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limit applies one rate limiter class keyed by client IP.
func (s *Server) limit(c Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := s.Limits.Allow(c, clientIP(r))
			if !ok {
				s.Logger.Warn("rate limited", "class", c.String(), "remote_ip", clientIP(r))
				w.Header().Set("retry-after", retryAfterSeconds(retry))
				writeDenial(w, r, denial{status: http.StatusTooManyRequests, message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
