package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/legtrack/internal/service"
)

const wsWriteTimeout = 10 * time.Second

// handleStream triggers a sync run and streams progress events over a
// WebSocket until the run is terminal or the client disconnects. A client
// disconnect cancels the run cooperatively between batches; the job stays
// RUNNING and can be finished later via the step endpoint.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	opts := streamOptions(r)

	// Trigger before upgrading so configuration errors surface as plain
	// HTTP statuses.
	job, err := s.controller.Trigger(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The request context ends with the handshake; the stream needs its own
	// lifetime, cancelled when the read pump sees the client go away.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sink := &wsSink{conn: conn}
	if err := s.runner.Run(ctx, job.ID, sink); err != nil {
		s.logger.Error("stream run failed", "job_id", job.ID, "error", err)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
}

// streamOptions reads trigger overrides from query parameters.
func streamOptions(r *http.Request) service.TriggerOptions {
	var opts service.TriggerOptions
	q := r.URL.Query()

	if v := q.Get("max_bills"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxBills = n
		}
	}
	if v := q.Get("bill_types"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				opts.BillTypes = append(opts.BillTypes, t)
			}
		}
	}
	return opts
}

// wsSink encodes progress events as JSON frames on the socket.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(event service.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}
