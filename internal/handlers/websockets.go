package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"zone_controller/internal/logger"
	"zone_controller/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMsgSize     = 1 << 12
	streamDefault  = time.Second
	streamMin      = 10 * time.Millisecond
	streamMax      = 10 * time.Second
	wsTypeState    = "state"
	wsTypeOverride = "override"
)

// wsEnvelope is the frame sent to stream clients.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// TODO: restrict CheckOrigin once the dashboard origin is configurable.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// zoneStream pushes zone snapshots to one client. Override status is only
// sent when it differs from what the client last saw.
type zoneStream struct {
	conn     *websocket.Conn
	services *service.Service
	log      *logger.Logger
	override *service.OverrideStatus
}

// wsConnect streams zone state every interval (?interval=2s or
// ?interval_ms=2000, at most 10s). The stream ends when the client goes
// away or a state read fails.
func (h *Handler) wsConnect(c *gin.Context) {
	interval := streamInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s := &zoneStream{conn: conn, services: h.services, log: h.log.With("remote", c.ClientIP())}
	s.run(c.Request.Context(), interval)
}

func (s *zoneStream) run(ctx context.Context, interval time.Duration) {
	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	closed := s.drain()

	push := time.NewTicker(interval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := s.push(ctx); err != nil {
		s.log.Infow("ws_stream_ended", "phase", "initial", "err", err)
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Infow("ws_stream_ended", "phase", "ping", "err", err)
				return
			}
		case <-push.C:
			if err := s.push(ctx); err != nil {
				s.log.Infow("ws_stream_ended", "phase", "push", "err", err)
				return
			}
		}
	}
}

// drain reads and discards client frames so control frames are handled.
// The returned channel closes when the client disconnects.
func (s *zoneStream) drain() <-chan struct{} {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return closed
}

func (s *zoneStream) push(ctx context.Context) error {
	st, err := s.services.Monitoring.GetState(ctx)
	if err != nil {
		s.log.Errorw("ws_get_state_failed", "err", err)
		return err
	}
	if err := s.write(wsEnvelope{Type: wsTypeState, Data: st}); err != nil {
		return err
	}
	return s.pushOverride(ctx)
}

// pushOverride sends the override status when it changed. A lookup failure
// is reported to the client and keeps the stream open.
func (s *zoneStream) pushOverride(ctx context.Context) error {
	if s.services.Overrides == nil {
		return nil
	}
	cur, err := s.services.Overrides.Current(ctx)
	if err != nil {
		s.log.Warnw("ws_get_override_failed", "err", err)
		return s.write(wsEnvelope{Type: wsTypeOverride, Error: errGetOverride})
	}
	if s.override != nil && sameOverride(*s.override, cur) {
		return nil
	}
	if err := s.write(wsEnvelope{Type: wsTypeOverride, Data: cur}); err != nil {
		return err
	}
	s.override = &cur
	return nil
}

func (s *zoneStream) write(env wsEnvelope) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(env)
}

// streamInterval reads the push interval from the query. interval wins over
// interval_ms; out of range or malformed values fall back to one second.
func streamInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && inStreamRange(d) {
			return d
		}
	}
	if s := c.Query("interval_ms"); s != "" {
		if ms, err := strconv.Atoi(s); err == nil {
			if d := time.Duration(ms) * time.Millisecond; inStreamRange(d) {
				return d
			}
		}
	}
	return streamDefault
}

func inStreamRange(d time.Duration) bool {
	return d >= streamMin && d <= streamMax
}

func sameOverride(a, b service.OverrideStatus) bool {
	if a.Active != b.Active || a.Mode != b.Mode || a.Source != b.Source {
		return false
	}
	if (a.Manual == nil) != (b.Manual == nil) {
		return false
	}
	return a.Manual == nil || *a.Manual == *b.Manual
}
