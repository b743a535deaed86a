package inspector

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
)

var errBusy = errors.New("inspector queue full")

// command is claimed exactly once, either by Drain to apply it or by the
// waiting client when its reply times out. An abandoned command never runs.
type command struct {
	req     Request
	reply   chan Response
	claimed atomic.Bool
}

func (c *command) claim() bool { return c.claimed.CompareAndSwap(false, true) }

// Server is the editor backend. Websocket readers run on their own
// goroutines and only queue requests; Drain applies them on the game loop.
type Server struct {
	cfg      config.InspectorConfig
	hash     []byte
	cmds     chan *command
	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener
	log      *zap.Logger
}

func NewServer(cfg config.InspectorConfig, log *zap.Logger) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 2 * time.Second
	}
	s := &Server{
		cfg:  cfg,
		cmds: make(chan *command, cfg.QueueSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log: log,
	}
	if cfg.PasswordHash != "" {
		s.hash = []byte(cfg.PasswordHash)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return err
	}
	s.listener = ln
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("inspector serve", zap.Error(err))
		}
	}()
	s.log.Info("inspector listening", zap.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Authorized checks HTTP basic auth against the configured bcrypt hash.
// Without a hash every request is allowed.
func (s *Server) Authorized(r *http.Request) bool {
	if s.hash == nil {
		return true
	}
	_, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.hash, []byte(pass)) == nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.Authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="inspector"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("inspector upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	s.log.Info("inspector client connected", zap.String("remote", r.RemoteAddr))

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("inspector read", zap.Error(err))
			}
			return
		}
		resp := s.Submit(r.Context(), req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Debug("inspector write", zap.Error(err))
			return
		}
	}
}

// Submit queues req for the game loop and waits for its response. A request
// that times out is withdrawn: it is either answered or never applied.
func (s *Server) Submit(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReplyTimeout)
	defer cancel()
	cmd := &command{req: req, reply: make(chan Response, 1)}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return failure(req, errBusy)
	}
	select {
	case resp := <-cmd.reply:
		return resp
	case <-ctx.Done():
		if cmd.claim() {
			return failure(req, ctx.Err())
		}
		// Drain got there first and is applying it.
		return <-cmd.reply
	}
}

// Drain applies up to limit queued requests without blocking and returns how
// many were applied. Requests whose client already gave up are dropped.
// Must be called from the game loop goroutine.
func (s *Server) Drain(w *ecs.World, bus *event.Bus, limit int) int {
	n := 0
	for n < limit {
		select {
		case cmd := <-s.cmds:
			if !cmd.claim() {
				continue
			}
			cmd.reply <- Apply(w, bus, cmd.req)
			n++
		default:
			return n
		}
	}
	return n
}
