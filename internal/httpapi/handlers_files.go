package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"shareview/internal/fsutil"
)

// resolveShared validates a client path against the shared root and the
// excluded installation directory. On rejection no filesystem call has been
// made.
func (s *Server) resolveShared(w http.ResponseWriter, r *http.Request, reqPath string) (string, bool) {
	local, err := fsutil.ResolveWithinRoot(s.ShareRoot, s.ExcludedDir, reqPath)
	if err != nil {
		actor := "-"
		if sess, ok := sessionFromContext(r.Context()); ok {
			actor = sess.Username
		}
		s.Logger.Warn("path rejected", "path", reqPath, "user", actor, "remote_ip", clientIP(r), "err", err)
		writeDenial(w, r, denial{status: http.StatusForbidden, message: "access denied"})
		return "", false
	}
	return local, true
}

type listEntry struct {
	Name    string `json:"name"`
	IsDir   bool   `json:"is_dir"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	reqPath := r.URL.Query().Get("path")
	local, ok := s.resolveShared(w, r, reqPath)
	if !ok {
		return
	}

	entries, err := os.ReadDir(local)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeDenial(w, r, denial{status: http.StatusNotFound, message: "not found"})
			return
		}
		writeBadRequest(w, "not a directory")
		return
	}

	out := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		// The excluded subtree stays invisible even in listings.
		if s.ExcludedDir != "" && filepath.Join(local, e.Name()) == s.ExcludedDir {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, listEntry{
			Name:    e.Name(),
			IsDir:   e.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}
	writeOK(w, map[string]any{"path": "/" + strings.TrimLeft(reqPath, "/"), "entries": out})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	reqPath := chi.URLParam(r, "*")
	local, ok := s.resolveShared(w, r, reqPath)
	if !ok {
		return
	}

	st, err := os.Stat(local)
	if err != nil {
		writeDenial(w, r, denial{status: http.StatusNotFound, message: "not found"})
		return
	}
	if st.IsDir() {
		writeBadRequest(w, "path is a directory")
		return
	}

	name := filepath.Base(local)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("content-type", ct)
	w.Header().Set("content-disposition", `attachment; filename="`+sanitizeFilename(name)+`"`)
	// ServeFile sets content-length and honors range requests and client
	// disconnects without touching shared state.
	http.ServeFile(w, r, local)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return -1
		}
		return r
	}, s)
}
