package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// denial is the terminal outcome of a rejected pipeline stage. It carries
// everything needed to format either a page redirect or a JSON error body.
type denial struct {
	status   int
	message  string
	redirect string
}

// errorBody is the stable JSON error envelope.
type errorBody struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// isAPIRequest decides between JSON errors and page redirects.
func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeDenial renders a denial: API callers get the JSON envelope, page
// requests get a redirect when one applies.
func writeDenial(w http.ResponseWriter, r *http.Request, d denial) {
	if !isAPIRequest(r) && d.redirect != "" {
		http.Redirect(w, r, d.redirect, http.StatusFound)
		return
	}
	writeJSON(w, d.status, errorBody{Message: d.message, Redirect: d.redirect})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK wraps a payload map with the success flag.
func writeOK(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Message: msg})
}

// writeInternalError hides collaborator failure detail from the caller.
// The caller is expected to have logged the underlying error already.
func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorBody{Message: "server error"})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("x-frame-options", "DENY")
		w.Header().Set("referrer-policy", "no-referrer")
		w.Header().Set("content-security-policy", "default-src 'self'; object-src 'none'; base-uri 'self'; frame-ancestors 'none'")
		if r.TLS != nil {
			w.Header().Set("strict-transport-security", "max-age=31536000")
		}
		next.ServeHTTP(w, r)
	})
}
