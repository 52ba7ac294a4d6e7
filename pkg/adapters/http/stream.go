package http

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans session snapshots out to server-sent event subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // session key -> channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a channel for key. The returned func unregisters and closes it.
func (sm *StreamManager) Subscribe(key string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			if _, live := subs[ch]; !live {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// HasSubscribers reports whether anyone listens on key.
func (sm *StreamManager) HasSubscribers(key string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[key]) > 0
}

// Broadcast sends msg to every subscriber of key, dropping it for slow ones.
func (sm *StreamManager) Broadcast(key, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	key := domain.SessionKey(chi.URLParam(r, "botID"), chi.URLParam(r, "senderID"))
	ch, cancel := s.streams.Subscribe(key)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("session events subscribed", "session_id", key)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: session\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
