// Package backendtest provides a programmable fake of the Q&A backend for
// tests. It serves the health, ask and conversations endpoints over
// httptest with a chi router and records every call.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Response describes how the fake answers one request.
type Response struct {
	Status int           // default 200
	Body   any           // encoded as JSON unless Raw is set
	Raw    string        // sent verbatim when non-empty
	Delay  time.Duration // wait before answering; aborted when the client goes away
}

// AskRequest is the body the fake expects on POST /ask.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

// AskFunc computes the response for one ask call. n is the 1-based call number.
type AskFunc func(n int, req AskRequest) Response

// Server is a fake backend.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	health        []Response
	ask           AskFunc
	conversations map[string]Response
	asks          []AskRequest

	healthCalls        atomic.Int32
	askCalls           atomic.Int32
	conversationsCalls atomic.Int32
}

// New starts a fake backend that is healthy, has no conversations and
// answers every question with a fixed answer. Call Close when done.
func New() *Server {
	s := &Server{
		conversations: make(map[string]Response),
		ask: func(n int, req AskRequest) Response {
			return Response{Body: map[string]any{"answer": "ok", "conversation_id": "c1"}}
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Post("/ask", s.handleAsk)
	r.Get("/conversations/{userID}", s.handleConversations)

	s.Server = httptest.NewServer(r)
	return s
}

// SetHealth queues responses for successive health probes. The last
// response repeats once the queue is exhausted.
func (s *Server) SetHealth(responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = responses
}

// SetAsk replaces the ask behavior.
func (s *Server) SetAsk(fn AskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ask = fn
}

// SetConversations sets the response for GET /conversations/{userID}.
func (s *Server) SetConversations(userID string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[userID] = resp
}

// HealthCalls returns the number of health probes received.
func (s *Server) HealthCalls() int { return int(s.healthCalls.Load()) }

// AskCalls returns the number of ask requests received.
func (s *Server) AskCalls() int { return int(s.askCalls.Load()) }

// ConversationsCalls returns the number of conversation fetches received.
func (s *Server) ConversationsCalls() int { return int(s.conversationsCalls.Load()) }

// Asks returns the decoded ask bodies received so far.
func (s *Server) Asks() []AskRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AskRequest, len(s.asks))
	copy(out, s.asks)
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n := int(s.healthCalls.Add(1))

	s.mu.Lock()
	resp := Response{Body: map[string]string{"status": "healthy"}}
	if len(s.health) > 0 {
		idx := n - 1
		if idx >= len(s.health) {
			idx = len(s.health) - 1
		}
		resp = s.health[idx]
	}
	s.mu.Unlock()

	write(w, r, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	n := int(s.askCalls.Add(1))

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		write(w, r, Response{Status: http.StatusUnprocessableEntity, Body: map[string]string{"detail": "invalid body"}})
		return
	}

	s.mu.Lock()
	s.asks = append(s.asks, req)
	fn := s.ask
	s.mu.Unlock()

	write(w, r, fn(n, req))
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	s.conversationsCalls.Add(1)
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	resp, ok := s.conversations[userID]
	s.mu.Unlock()

	if !ok {
		resp = Response{Body: []any{}}
	}
	write(w, r, resp)
}

func write(w http.ResponseWriter, r *http.Request, resp Response) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if resp.Raw != "" {
		w.Write([]byte(resp.Raw))
		return
	}
	if resp.Body != nil {
		json.NewEncoder(w).Encode(resp.Body)
	}
}
