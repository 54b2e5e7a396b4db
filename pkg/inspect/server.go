package inspect

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

// Server serves one store's inspection surface.
type Server struct {
	store     *pathstore.Store
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	queueSize int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger (default: slog.Default).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithQueueSize sets the per-watch event buffer (default: 64). When a
// client cannot keep up, excess notifications are dropped, not queued
// without bound.
func WithQueueSize(n int) Option {
	return func(s *Server) {
		s.queueSize = n
	}
}

// New creates an inspector over store.
func New(store *pathstore.Store, opts ...Option) *Server {
	s := &Server{
		store:     store,
		logger:    slog.Default(),
		queueSize: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the inspector's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleWholeState)
	r.Patch("/state", s.handleMergePatch)
	r.Get("/state/*", s.handleGetField)
	r.Post("/state/*", s.handleSetField)
	r.Delete("/state/*", s.handleResetField)
	r.Get("/watch", s.handleWatch)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWholeState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State())
}

func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	path := fieldPath(r)
	value, ok := s.store.Get(path)
	if !ok {
		writeError(w, http.StatusNotFound, "no value at "+path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "value": value})
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	path := fieldPath(r)

	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	s.store.Updater(path)(value)
	s.logger.Debug("field set", "path", path)
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "value": value})
}

func (s *Server) handleResetField(w http.ResponseWriter, r *http.Request) {
	path := fieldPath(r)
	s.store.Reset(path)

	value, _ := s.store.Get(path)
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "value": value})
}

// handleMergePatch applies an RFC 7386 merge patch to the whole tree and
// pushes the result through UpdateAll, so only the keys named by the
// patch are replaced and notified. A null for a top-level key leaves the
// key present with a nil value; the store has no key deletion.
func (s *Server) handleMergePatch(w http.ResponseWriter, r *http.Request) {
	patchData, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	var patchKeys map[string]json.RawMessage
	if err := json.Unmarshal(patchData, &patchKeys); err != nil {
		writeError(w, http.StatusBadRequest, "merge patch must be a JSON object: "+err.Error())
		return
	}

	current, err := json.Marshal(s.store.State())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode state: "+err.Error())
		return
	}

	merged, err := jsonpatch.MergePatch(current, patchData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "apply merge patch: "+err.Error())
		return
	}

	var mergedTree pathstore.Tree
	if err := json.Unmarshal(merged, &mergedTree); err != nil {
		writeError(w, http.StatusInternalServerError, "decode merged state: "+err.Error())
		return
	}

	patch := make(pathstore.Patch, len(patchKeys))
	for key := range patchKeys {
		patch[key] = mergedTree[key]
	}
	s.store.UpdateAll(patch)

	s.logger.Debug("merge patch applied", "keys", len(patch))
	writeJSON(w, http.StatusOK, s.store.State())
}

// fieldPath converts the wildcard route segment into a dotted store path:
// /state/cart/price addresses cart.price.
func fieldPath(r *http.Request) string {
	wild := chi.URLParam(r, "*")
	return strings.ReplaceAll(wild, "/", string(pathstore.Separator))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
