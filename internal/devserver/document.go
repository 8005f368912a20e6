package devserver

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"

	"github.com/vango-dev/vroute/pkg/wsenv"
)

// ViewElementID is the id of the element views are rendered into.
const ViewElementID = "vroute-view"

// defaultShell is served when the project has no shell file.
const defaultShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title></title>
</head>
<body>
<main id="` + ViewElementID + `"></main>
</body>
</html>
`

// handleDocument serves the shell for paths that match a route. Other
// paths are not found.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()

	if _, _, ok := table.Lookup(r.URL.EscapedPath()); !ok {
		http.NotFound(w, r)
		return
	}

	shell, err := s.shell()
	if err != nil {
		s.logger.Error("shell not readable", "path", s.cfg.ShellPath(), "error", err)
		http.Error(w, "shell not readable", http.StatusInternalServerError)
		return
	}
	page := injectScript(shell, wsenv.ClientScript(s.cfg.Server.WebSocketPath))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	if r.Method == http.MethodHead {
		return
	}
	w.Write(page)
}

// shell returns the project's shell file, or the built-in one when the
// file does not exist.
func (s *Server) shell() ([]byte, error) {
	data, err := os.ReadFile(s.cfg.ShellPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []byte(defaultShell), nil
	}
	return data, err
}

// injectScript inserts script before </body>, or before </html>, or
// appends it.
func injectScript(page []byte, script string) []byte {
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx == -1 {
		idx = bytes.LastIndex(page, []byte("</html>"))
	}
	if idx == -1 {
		return append(append([]byte(nil), page...), script...)
	}

	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:idx]...)
	out = append(out, script...)
	return append(out, page[idx:]...)
}
