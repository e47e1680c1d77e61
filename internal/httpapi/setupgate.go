package httpapi

import (
	"net/http"
	"strings"
)

// setupAllowlist holds the only paths reachable while setup is required:
// the setup page and submission, translation/language lookups, and static
// assets.
var setupAllowlist = map[string]bool{
	"/setup":        true,
	"/api/setup":    true,
	"/api/i18n":     true,
	"/api/language": true,
}

func allowedDuringSetup(path string) bool {
	return setupAllowlist[path] || strings.HasPrefix(path, "/static/")
}

// setupGate reshapes routing around the derived setup state. The state is
// computed fresh from the store on every request so an admin created by a
// concurrent setup submission takes effect immediately.
func (s *Server) setupGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := s.DB.GetSetupState(r.Context())
		if err != nil {
			s.Logger.Error("setup state query failed", "err", err, "remote_ip", clientIP(r))
			writeInternalError(w)
			return
		}

		path := r.URL.Path
		if st.Operational() {
			// The setup flow is closed for good; re-entry requires an
			// explicit reset through the store.
			if path == "/setup" {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			if path == "/api/setup" {
				writeDenial(w, r, denial{status: http.StatusForbidden, message: "setup already completed", redirect: "/"})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if allowedDuringSetup(path) {
			next.ServeHTTP(w, r)
			return
		}
		s.Logger.Warn("request blocked pending setup", "path", path, "remote_ip", clientIP(r))
		writeDenial(w, r, denial{status: http.StatusServiceUnavailable, message: "setup required", redirect: "/setup"})
	})
}
