// Package gatewaytest provides an in-process gateway speaking the session
// protocol, for tests of code that talks to a gateway.
package gatewaytest

import (
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
)

// Mode selects how the fake gateway behaves during the handshake
type Mode int

const (
	// ModeAccept verifies the signature (when a public key is set) and replies hello-ok
	ModeAccept Mode = iota
	// ModeReject replies hello-error to every connect
	ModeReject
	// ModeSilent never sends a challenge
	ModeSilent
	// ModeIgnoreConnect sends a challenge but never answers the connect
	ModeIgnoreConnect
	// ModeCloseAfterChallenge sends a challenge and closes the connection normally
	ModeCloseAfterChallenge
)

// Handler produces the response payload for a call. Returning ok=false
// suppresses the response so the caller times out.
type Handler func(params map[string]any) (payload any, ok bool)

// Server is a fake gateway backed by httptest
type Server struct {
	srv *httptest.Server

	mu           sync.Mutex
	mode         Mode
	upgradeDelay time.Duration
	publicKey    *rsa.PublicKey
	deviceToken  string
	timestamp    any
	handlers     map[string]Handler
	connects     []gateway.ConnectRequest
	authHeaders  []string
	calls        []string
}

// Option configures a Server
type Option func(*Server)

func WithMode(m Mode) Option {
	return func(s *Server) { s.mode = m }
}

// WithUpgradeDelay holds every connection for d before accepting the upgrade
func WithUpgradeDelay(d time.Duration) Option {
	return func(s *Server) { s.upgradeDelay = d }
}

// WithPublicKey makes the server verify connect signatures against pub
func WithPublicKey(pub *rsa.PublicKey) Option {
	return func(s *Server) { s.publicKey = pub }
}

// WithDeviceToken sets the device token issued in hello-ok
func WithDeviceToken(token string) Option {
	return func(s *Server) { s.deviceToken = token }
}

// WithTimestamp fixes the challenge timestamp (string or number)
func WithTimestamp(ts any) Option {
	return func(s *Server) { s.timestamp = ts }
}

// WithHandler registers a call handler for method
func WithHandler(method string, h Handler) Option {
	return func(s *Server) { s.handlers[method] = h }
}

// WithPresence registers the four presence methods with fixed results
func WithPresence(agents, channels, models []any, config map[string]any) Option {
	return func(s *Server) {
		s.handlers[gateway.MethodAgentsList] = Items(agents)
		s.handlers[gateway.MethodChannelsList] = Items(channels)
		s.handlers[gateway.MethodModelsList] = Items(models)
		s.handlers[gateway.MethodSystemPresence] = func(map[string]any) (any, bool) { return config, true }
	}
}

// Items returns a handler answering {items: items}
func Items(items []any) Handler {
	return func(map[string]any) (any, bool) {
		if items == nil {
			items = []any{}
		}
		return map[string]any{"items": items}, true
	}
}

// Delayed wraps h to answer after d
func Delayed(d time.Duration, h Handler) Handler {
	return func(params map[string]any) (any, bool) {
		time.Sleep(d)
		return h(params)
	}
}

// New starts a fake gateway; it is closed when the test ends
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		handlers:  map[string]Handler{},
		timestamp: time.Now().UnixMilli(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the ws:// endpoint of the server
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// SetMode changes the handshake behavior for later connections
func (s *Server) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Connects returns every connect request received
func (s *Server) Connects() []gateway.ConnectRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gateway.ConnectRequest{}, s.connects...)
}

// AuthHeaders returns the Authorization header of every upgrade request
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.authHeaders...)
}

// Calls returns the methods called, in arrival order
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.calls...)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  map[string]any  `json:"params,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) send(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteJSON(v)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
	mode := s.mode
	ts := s.timestamp
	delay := s.upgradeDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()

	if mode == ModeSilent {
		_, _, _ = ws.ReadMessage()
		return
	}

	nonce := uuid.New().String()
	c.send(map[string]any{
		"type":    gateway.MsgChallenge,
		"payload": map[string]any{"nonce": nonce, "timestamp": ts},
	})

	if mode == ModeCloseAfterChallenge {
		c.writeMu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Type {
		case gateway.MsgConnect:
			s.onConnect(c, mode, nonce, f.Payload)

		case gateway.MsgCall:
			s.mu.Lock()
			s.calls = append(s.calls, f.Method)
			h, ok := s.handlers[f.Method]
			s.mu.Unlock()
			if !ok {
				continue
			}
			wg.Add(1)
			go func(f frame) {
				defer wg.Done()
				payload, ok := h(f.Params)
				if !ok {
					return
				}
				c.send(map[string]any{"type": "response", "id": f.ID, "payload": payload})
			}(f)
		}
	}
}

func (s *Server) onConnect(c *conn, mode Mode, nonce string, raw json.RawMessage) {
	var req gateway.ConnectRequest
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	_ = dec.Decode(&req)

	s.mu.Lock()
	s.connects = append(s.connects, req)
	pub := s.publicKey
	token := s.deviceToken
	s.mu.Unlock()

	switch mode {
	case ModeIgnoreConnect:
		return
	case ModeReject:
		c.send(map[string]any{"type": gateway.MsgHelloError, "payload": map[string]any{"reason": "rejected"}})
		return
	}

	if req.Nonce != nonce {
		c.send(map[string]any{"type": gateway.MsgHelloError, "payload": map[string]any{"reason": "nonce mismatch"}})
		return
	}
	if pub != nil {
		ch := gateway.Challenge{Nonce: req.Nonce, Timestamp: req.Timestamp}
		if err := gateway.VerifyChallenge(pub, req.Nonce, ch.TimestampText(), req.Signature); err != nil {
			c.send(map[string]any{"type": gateway.MsgHelloError, "payload": map[string]any{"reason": "bad signature"}})
			return
		}
	}

	payload := map[string]any{}
	if token != "" {
		payload["deviceToken"] = token
	}
	c.send(map[string]any{"type": gateway.MsgHelloOK, "payload": payload})
}
