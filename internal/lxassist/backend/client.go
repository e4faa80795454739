// Package backend is the HTTP client for the Q&A backend. Every call is
// bounded by its context and fails with a *Error whose Kind drives
// classification.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayoubnajjout/ai-linux-cmd-assistant/internal/version"
)

const (
	OpHealth        = "health"
	OpAsk           = "ask"
	OpConversations = "conversations"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Client talks to one backend base URL. It is safe for concurrent use and
// the base URL may be swapped while requests are in flight.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL. Timeouts come from the contexts
// passed to each call, not from the http.Client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "lxassist/" + version.Short(),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the current backend base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points subsequent requests at a new backend.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// Health calls GET /health. Any non-200 status is an error.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, OpHealth, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return httpError(OpHealth, resp.status, resp.body)
	}
	return nil
}

// Conversations fetches the persisted conversation records of userID.
func (c *Client) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	resp, err := c.do(ctx, OpConversations, http.MethodGet, "/conversations/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, httpError(OpConversations, resp.status, resp.body)
	}

	var records []Conversation
	if err := json.Unmarshal(resp.body, &records); err != nil {
		return nil, &Error{Kind: KindParse, Op: OpConversations, Cause: err}
	}
	return records, nil
}

// Ask submits a question on behalf of userID. A success body lacking either
// the answer or the conversation id is a KindParse error.
func (c *Client) Ask(ctx context.Context, question, userID string) (*AskResponse, error) {
	payload, err := json.Marshal(AskRequest{Question: question, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("encoding ask request: %w", err)
	}

	resp, err := c.do(ctx, OpAsk, http.MethodPost, "/ask", payload)
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, httpError(OpAsk, resp.status, resp.body)
	}

	var body askPayload
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, &Error{Kind: KindParse, Op: OpAsk, Cause: err}
	}
	if body.Answer == nil {
		return nil, &Error{Kind: KindParse, Op: OpAsk, Cause: fmt.Errorf("missing answer")}
	}
	if body.ConversationID == "" {
		return nil, &Error{Kind: KindParse, Op: OpAsk, Cause: fmt.Errorf("missing conversation_id")}
	}

	return &AskResponse{Answer: *body.Answer, ConversationID: body.ConversationID.String()}, nil
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) (*response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, reqBody)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Cause: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		be := transportError(ctx, op, err)
		c.log.Debug().Err(err).
			Str("op", op).
			Str("request_id", requestID).
			Stringer("kind", be.Kind).
			Dur("elapsed", time.Since(start)).
			Msg("backend request failed")
		return nil, be
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, transportError(ctx, op, err)
	}

	c.log.Debug().
		Str("op", op).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	return &response{status: resp.StatusCode, body: body}, nil
}
