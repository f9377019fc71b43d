// Package server exposes the chat orchestrator over websocket plus the
// read-side HTTP endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recipeu/agent/pkg/chat"
	"github.com/recipeu/agent/pkg/store"
)

// ChatHistory is the durable read path for transcripts of sessions that
// persisted their turns. Nil when persistence is disabled.
type ChatHistory interface {
	SessionChats(ctx context.Context, sessionID int64) ([]store.ChatMessage, error)
}

// Server owns the HTTP listener, the websocket upgrader and the in-memory
// session registry. Sessions outlive their connection so the read-side
// endpoint can inspect them after a disconnect.
type Server struct {
	addr       string
	controller *chat.Controller
	history    ChatHistory
	upgrader   websocket.Upgrader
	log        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*chat.Session

	httpServer *http.Server
}

func New(addr string, controller *chat.Controller, history ChatHistory, allowedOrigins []string, log *slog.Logger) *Server {
	s := &Server{
		addr:       addr,
		controller: controller,
		history:    history,
		sessions:   make(map[string]*chat.Session),
		log:        log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Start serves until the context is canceled, then drains with a grace
// period.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/{sessionID}", s.handleWebsocket)
	r.Get("/session/{sessionID}", s.handleSessionInfo)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the registered session for the id, creating it on first
// use.
func (s *Server) session(id string) *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		return session
	}
	session := chat.NewSession(id)
	s.sessions[id] = session
	return session
}

func (s *Server) lookupSession(id string) (*chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// wsSender serializes writes to one connection; the controller's progress
// goroutine and the handler goroutine both write frames.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSender) Send(frame any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(frame)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	session := s.session(sessionID)
	sender := &wsSender{conn: conn}
	s.log.Info("websocket connected", "session_id", sessionID)

	// Reads run apart from frame handling so a peer disconnect cancels work
	// already in flight instead of letting it run to its deadline.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan chat.InboundFrame)
	go func() {
		defer cancel()
		defer close(frames)
		for {
			var frame chat.InboundFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Warn("websocket read failed", "session_id", sessionID, "error", err)
				} else {
					s.log.Info("websocket closed", "session_id", sessionID)
				}
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for frame := range frames {
		s.controller.HandleFrame(ctx, session, sender, frame)
	}
}

type sessionInfoResponse struct {
	SessionID           string                   `json:"session_id"`
	DBSessionID         int64                    `json:"db_session_id,omitempty"`
	Messages            []chat.Message           `json:"messages"`
	UserConstraints     chat.Personalization     `json:"user_constraints"`
	ModificationHistory []chat.ModificationEntry `json:"modification_history"`
	ArchivedMessages    []store.ChatMessage      `json:"archived_messages,omitempty"`
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, ok := s.lookupSession(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	resp := sessionInfoResponse{
		SessionID:           session.ID,
		DBSessionID:         session.DBSessionID,
		Messages:            session.Messages(),
		UserConstraints:     session.Profile,
		ModificationHistory: session.Ledger.Entries(),
	}
	if s.history != nil && session.DBSessionID > 0 {
		chats, err := s.history.SessionChats(r.Context(), session.DBSessionID)
		if err != nil {
			s.log.Warn("archived transcript read failed",
				"session_id", sessionID, "db_session_id", session.DBSessionID, "error", err)
		} else {
			resp.ArchivedMessages = chats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
