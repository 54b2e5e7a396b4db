package inspect

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

// writeTimeout bounds each WebSocket write.
const writeTimeout = 10 * time.Second

// watchEvent is one frame on the change stream. Seq 0 is the snapshot
// sent on connect; gaps above that mean the client fell behind and
// intermediate notifications were dropped.
type watchEvent struct {
	Seq   uint64 `json:"seq"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// handleWatch upgrades to a WebSocket and streams the value at ?path=
// (whole store by default) on every overlapping notification. An optional
// ?expr= filter is compiled with expr-lang and evaluated against
// {path, value}; only events for which it yields true are sent. The
// connection's listener is removed when the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	path := pathstore.JoinPath(pathstore.SplitPath(r.URL.Query().Get("path")))

	// Compiled without a typed environment: path and value are only known
	// at run time, so identifiers must stay unchecked here.
	var filter *vm.Program
	if src := r.URL.Query().Get("expr"); src != "" {
		prog, err := expr.Compile(src, expr.AsBool())
		if err != nil {
			writeError(w, http.StatusBadRequest, "compile expr: "+err.Error())
			return
		}
		filter = prog
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("watch upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	token := uuid.NewString()
	logger := s.logger.With("watch", token, "path", path)

	queue := newWatchQueue(s.queueSize)

	listener := pathstore.Observer(func() {
		value, _ := s.store.Get(path)
		if filter != nil && !s.passes(filter, path, value, logger) {
			return
		}
		queue.push(path, value)
	})

	s.store.Subscribe(path, listener)
	defer s.store.Unsubscribe(path, listener)

	logger.Debug("watch opened")
	defer func() {
		logger.Debug("watch closed", "delivered", queue.seq.Load(), "dropped", queue.dropped.Load())
	}()

	// Read loop only detects disconnect; the stream is one-directional.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Snapshot frame: the subscription is live once the client reads it.
	value, _ := s.store.Get(path)
	if err := s.writeEvent(conn, watchEvent{Seq: 0, Path: path, Value: value}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case ev := <-queue.events:
			if err := s.writeEvent(conn, ev); err != nil {
				logger.Debug("watch write failed", "error", err)
				return
			}
		}
	}
}

// watchQueue buffers notifications for one watch connection. seq numbers
// every eligible event; a full buffer drops the newest event instead of
// blocking notification delivery, so drops show up to the client as gaps
// in seq.
type watchQueue struct {
	events  chan watchEvent
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func newWatchQueue(size int) *watchQueue {
	return &watchQueue{events: make(chan watchEvent, size)}
}

func (q *watchQueue) push(path string, value any) {
	ev := watchEvent{Seq: q.seq.Add(1), Path: path, Value: value}
	select {
	case q.events <- ev:
	default:
		q.dropped.Add(1)
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev watchEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(ev)
}

// passes evaluates the watch filter; evaluation errors drop the event.
func (s *Server) passes(filter *vm.Program, path string, value any, logger *slog.Logger) bool {
	out, err := expr.Run(filter, map[string]any{"path": path, "value": value})
	if err != nil {
		logger.Debug("watch filter error", "error", err)
		return false
	}
	keep, ok := out.(bool)
	return ok && keep
}
