package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	pperrors "github.com/vivars7/pathproxy/internal/errors"
)

// newFallbackHandler returns the continuation for requests the forwarder
// passes through: files under dir, or a JSON 404 when dir is empty or the
// file does not exist.
func newFallbackHandler(dir string) http.Handler {
	if dir == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pperrors.WriteHTTPError(w, pperrors.ErrNotFound)
		})
	}

	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			pperrors.WriteHTTPError(w, pperrors.ErrMethodNotAllowed)
			return
		}

		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(name); err != nil {
			pperrors.WriteHTTPError(w, pperrors.ErrNotFound)
			return
		}
		files.ServeHTTP(w, r)
	})
}
