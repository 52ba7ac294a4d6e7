package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/dispatch"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatcher runs a turn and waits for it. *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	Submit(ctx context.Context, req dispatch.Request) (domain.Result, error)
}

// Transcripts hands out what the gateway recorded for a recipient since the last call.
// *memory.Recorder satisfies it.
type Transcripts interface {
	Drain(recipientID string) []domain.Outbound
}

// Server is the operations surface of a running engine: health, metrics, a sandbox
// message endpoint and session inspection.
type Server struct {
	bots        ports.BotDirectory
	turns       Dispatcher
	sessions    *session.Manager
	transcripts Transcripts
	recipients  *recipientLocks
	gatherer    prometheus.Gatherer
	streams     *StreamManager
	logger      *slog.Logger
	version     string
}

// Option configures a Server.
type Option func(*Server)

// WithTranscripts makes the message endpoint return what the bot answered.
// Requests for the same sender are then handled one at a time so each response
// carries only the replies of its own turn.
func WithTranscripts(t Transcripts) Option {
	return func(s *Server) {
		s.transcripts = t
	}
}

// WithGatherer exposes the given registry on /metrics instead of the default one.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a Server.
func New(bots ports.BotDirectory, turns Dispatcher, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		bots:       bots,
		turns:      turns,
		sessions:   sessions,
		recipients: newRecipientLocks(),
		gatherer:   prometheus.DefaultGatherer,
		streams:    NewStreamManager(),
		logger:     logging.NewNop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/bots/{botID}", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Route("/sessions/{senderID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/events", s.handleEvents)
		})
	})

	return enableCORS(r)
}

// ListenAndServe serves the handler on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MessageRequest is the body of POST /v1/bots/{botID}/messages.
type MessageRequest struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
	Platform string `json:"platform,omitempty"`
}

// MessageResponse reports the turn outcome and, when transcripts are enabled, the replies.
type MessageResponse struct {
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	Messages []TranscriptEntry `json:"messages"`
}

// TranscriptEntry is one outbound message tagged with its kind.
type TranscriptEntry struct {
	Type    string          `json:"type"`
	Message domain.Outbound `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"app": "botflow", "version": s.version})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	bot, ok := s.lookupBot(w, r)
	if !ok {
		return
	}

	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("message: invalid request body", "err", err)
		return
	}
	if body.SenderID == "" {
		http.Error(w, "sender_id is required", http.StatusBadRequest)
		return
	}

	if s.transcripts != nil {
		unlock, err := s.recipients.lock(r.Context(), body.SenderID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusGatewayTimeout)
			return
		}
		defer unlock()
	}
	res, err := s.turns.Submit(r.Context(), dispatch.Request{
		Bot:      *bot,
		SenderID: body.SenderID,
		Message:  body.Text,
		Platform: body.Platform,
	})
	switch {
	case errors.Is(err, domain.ErrActorBusy):
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	case errors.Is(err, domain.ErrDispatcherClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}

	resp := MessageResponse{Success: res.Success, Error: res.Error, Messages: []TranscriptEntry{}}
	if s.transcripts != nil {
		for _, msg := range s.transcripts.Drain(body.SenderID) {
			resp.Messages = append(resp.Messages, TranscriptEntry{Type: outboundType(msg), Message: msg})
		}
	}
	s.publish(r.Context(), bot.ID, body.SenderID)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := domain.SessionKey(chi.URLParam(r, "botID"), chi.URLParam(r, "senderID"))
	sess, err := s.sessions.Load(r.Context(), key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		s.logger.Error("load session failed", "session_id", key, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	key := domain.SessionKey(chi.URLParam(r, "botID"), chi.URLParam(r, "senderID"))
	if err := s.sessions.Delete(r.Context(), key); err != nil {
		http.Error(w, "failed to delete session", http.StatusInternalServerError)
		s.logger.Error("delete session failed", "session_id", key, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupBot(w http.ResponseWriter, r *http.Request) (*domain.Bot, bool) {
	botID := chi.URLParam(r, "botID")
	bot, err := s.bots.GetBot(r.Context(), botID)
	if errors.Is(err, domain.ErrBotNotFound) {
		http.Error(w, "bot not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "failed to load bot", http.StatusInternalServerError)
		s.logger.Error("get bot failed", "bot_id", botID, "err", err)
		return nil, false
	}
	return bot, true
}

// publish pushes the session as it stands after a turn to its event subscribers.
func (s *Server) publish(ctx context.Context, botID, senderID string) {
	key := domain.SessionKey(botID, senderID)
	if !s.streams.HasSubscribers(key) {
		return
	}
	sess, err := s.sessions.Load(ctx, key)
	if err != nil {
		s.logger.Debug("session not published", "session_id", key, "err", err)
		return
	}
	if data, err := json.Marshal(sess); err == nil {
		s.streams.Broadcast(key, string(data))
	}
}

func outboundType(msg domain.Outbound) string {
	switch msg.(type) {
	case domain.TextMessage:
		return "text"
	case domain.ImageMessage:
		return "image"
	case domain.CardMessage:
		return "card"
	case domain.QuickReplyMessage:
		return "quick_replies"
	case domain.TypingIndicator:
		return "typing"
	default:
		return "unknown"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
