package gateway

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCallTimeout      = 10 * time.Second

	closeGracePeriod = time.Second
)

type State int

const (
	StateConnecting State = iota
	StateAwaitingChallenge
	StateAuthenticating
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// errClosedBeforeAuth is delivered to Open when the peer hangs up during the handshake
var errClosedBeforeAuth = errors.New("closed before authentication")

// Session is one connection to a gateway. It runs the challenge-response
// handshake in Open and then multiplexes calls matched by correlation id.
type Session struct {
	url              string
	token            string
	privateKeyPEM    string
	handshakeTimeout time.Duration
	callTimeout      time.Duration
	dialer           *websocket.Dialer
	logger           *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu            sync.Mutex
	state         State
	deviceToken   string
	authenticated bool
	pending       map[string]chan *Message

	authDone   chan error
	readerDone chan struct{}
	closeOnce  sync.Once
}

// Option configures a Session
type Option func(*Session)

// WithToken sets the bearer credential sent on the transport upgrade
func WithToken(token string) Option {
	return func(s *Session) {
		s.token = token
	}
}

// WithPrivateKey sets the PEM encoded device key used to sign challenges
func WithPrivateKey(pemText string) Option {
	return func(s *Session) {
		s.privateKeyPEM = pemText
	}
}

// WithDeviceToken presents a device token issued by an earlier hello-ok
func WithDeviceToken(token string) Option {
	return func(s *Session) {
		s.deviceToken = token
	}
}

// WithHandshakeTimeout overrides DefaultHandshakeTimeout
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.handshakeTimeout = d
	}
}

// WithCallTimeout overrides DefaultCallTimeout
func WithCallTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.callTimeout = d
	}
}

// WithDialer replaces the websocket dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Session) {
		s.dialer = d
	}
}

// Open dials url and runs the handshake. It returns when hello-ok arrives,
// when the handshake fails, or when the peer closes the connection before
// authentication. In the last case the session is returned without error but
// Authenticated reports false and calls fail.
func Open(ctx context.Context, url string, opts ...Option) (*Session, error) {
	s := &Session{
		url:              url,
		handshakeTimeout: DefaultHandshakeTimeout,
		callTimeout:      DefaultCallTimeout,
		dialer:           websocket.DefaultDialer,
		logger:           logging.From(ctx).With("gateway", url),
		state:            StateConnecting,
		pending:          make(map[string]chan *Message),
		authDone:         make(chan error, 1),
		readerDone:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	// dialing and waiting for hello-ok share one deadline
	deadline := time.Now().Add(s.handshakeTimeout)
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, resp, err := s.dialer.DialContext(dialCtx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, goerr.Wrap(model.ErrProtocol, "failed to connect to gateway",
			goerr.V("url", url), goerr.V("error", err.Error()))
	}
	s.conn = conn

	s.setState(StateAwaitingChallenge)
	go s.readLoop()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case err := <-s.authDone:
		switch {
		case err == nil:
			s.logger.Debug("gateway session ready")
			return s, nil
		case errors.Is(err, errClosedBeforeAuth):
			s.logger.Debug("gateway closed the connection before authentication")
			return s, nil
		default:
			s.fail()
			return nil, err
		}

	case <-timer.C:
		s.fail()
		return nil, goerr.Wrap(model.ErrProtocol, "handshake timed out",
			goerr.V("url", url), goerr.V("timeout", s.handshakeTimeout.String()))

	case <-ctx.Done():
		s.fail()
		return nil, goerr.Wrap(model.ErrProtocol, "handshake interrupted",
			goerr.V("url", url), goerr.V("error", ctx.Err().Error()))
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether hello-ok was received
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// DeviceToken returns the token issued by the gateway, or the one presented at open
func (s *Session) DeviceToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceToken
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) signalAuth(err error) {
	select {
	case s.authDone <- err:
	default:
	}
}

func (s *Session) readLoop() {
	defer close(s.readerDone)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.onTransportClosed(err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			if !s.Authenticated() {
				s.signalAuth(goerr.Wrap(model.ErrProtocol, "malformed handshake message", goerr.V("error", err.Error())))
			} else {
				s.logger.Warn("dropping malformed gateway message", "error", err.Error())
			}
			continue
		}
		s.dispatch(&msg)
	}
}

func (s *Session) dispatch(msg *Message) {
	if msg.ID != "" {
		s.mu.Lock()
		ch, ok := s.pending[msg.ID]
		if ok {
			delete(s.pending, msg.ID)
		}
		s.mu.Unlock()
		if ok {
			ch <- msg
			return
		}
	}

	switch msg.Type {
	case MsgChallenge:
		s.onChallenge(msg)

	case MsgHelloOK:
		var hello helloOK
		_ = decodePayload(msg.Payload, &hello)
		s.mu.Lock()
		s.state = StateReady
		s.authenticated = true
		if hello.DeviceToken != "" {
			s.deviceToken = hello.DeviceToken
		}
		s.mu.Unlock()
		s.signalAuth(nil)

	case MsgHelloError:
		s.setState(StateFailed)
		s.signalAuth(goerr.Wrap(model.ErrProtocol, "gateway rejected authentication",
			goerr.V("payload", string(msg.Payload))))

	default:
		if msg.ID != "" {
			s.logger.Debug("dropping response without pending call", "id", msg.ID)
		}
	}
}

func (s *Session) onChallenge(msg *Message) {
	if s.State() != StateAwaitingChallenge {
		s.logger.Debug("ignoring unexpected challenge", "state", s.State().String())
		return
	}

	var ch Challenge
	if err := decodePayload(msg.Payload, &ch); err != nil {
		s.signalAuth(goerr.Wrap(model.ErrProtocol, "malformed challenge", goerr.V("error", err.Error())))
		return
	}

	req := &ConnectRequest{
		Role:        Role,
		Scopes:      Scopes,
		Signature:   s.sign(ch.Nonce, ch.TimestampText()),
		Timestamp:   ch.Timestamp,
		Nonce:       ch.Nonce,
		DeviceToken: s.DeviceToken(),
	}

	s.setState(StateAuthenticating)
	// a failed send is not reported here: the reader observes the broken
	// transport, or the handshake timer fires
	if err := s.writeJSON(&envelope{Type: MsgConnect, Payload: req}); err != nil {
		s.logger.Debug("failed to send connect", "error", err)
	}
}

// sign returns an empty signature when no key is configured or signing fails
func (s *Session) sign(nonce, timestamp string) string {
	if s.privateKeyPEM == "" {
		return ""
	}
	var (
		key *rsa.PrivateKey
		err error
	)
	if key, err = ParsePrivateKey(s.privateKeyPEM); err == nil {
		var sig string
		if sig, err = SignChallenge(key, nonce, timestamp); err == nil {
			return sig
		}
	}
	s.logger.Warn("failed to sign challenge, sending empty signature", "error", err)
	return ""
}

func (s *Session) onTransportClosed(err error) {
	s.mu.Lock()
	authenticated := s.authenticated
	if s.state != StateFailed {
		s.state = StateClosed
	}
	s.mu.Unlock()

	if !authenticated {
		s.signalAuth(errClosedBeforeAuth)
	}
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Debug("gateway transport closed", "error", err.Error())
	}
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(v); err != nil {
		return goerr.Wrap(model.ErrProtocol, "failed to send message", goerr.V("error", err.Error()))
	}
	return nil
}

// Call issues method and waits for the response payload. A timed out call
// is abandoned but the connection stays open.
func (s *Session) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if s == nil || s.conn == nil {
		return nil, goerr.Wrap(model.ErrProtocol, "session is not open", goerr.V("method", method))
	}
	if state := s.State(); state != StateReady {
		return nil, goerr.Wrap(model.ErrProtocol, "session is not ready",
			goerr.V("method", method), goerr.V("state", state.String()))
	}
	if params == nil {
		params = map[string]any{}
	}

	id := uuid.New().String()
	ch := make(chan *Message, 1)

	// registered before sending so an immediate response is never missed
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()

	if err := s.writeJSON(&callMessage{Type: MsgCall, ID: id, Method: method, Params: params}); err != nil {
		s.forget(id)
		return nil, goerr.Wrap(err, "failed to send call", goerr.V("method", method))
	}

	timer := time.NewTimer(s.callTimeout)
	defer timer.Stop()

	select {
	case msg := <-ch:
		return msg.Payload, nil

	case <-timer.C:
		s.forget(id)
		s.logger.Debug("gateway call timed out", "method", method, "id", id)
		return nil, goerr.Wrap(model.ErrProtocol, "call timed out",
			goerr.V("method", method), goerr.V("timeout", s.callTimeout.String()))

	case <-s.readerDone:
		s.forget(id)
		return nil, goerr.Wrap(model.ErrProtocol, "connection closed during call", goerr.V("method", method))

	case <-ctx.Done():
		s.forget(id)
		return nil, goerr.Wrap(model.ErrProtocol, "call interrupted",
			goerr.V("method", method), goerr.V("error", ctx.Err().Error()))
	}
}

func (s *Session) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// FetchPresence issues the four presence calls concurrently. Each call that
// fails or returns an unexpected shape degrades to an empty result, so this
// never fails; callers inspect counts to detect partial results.
func (s *Session) FetchPresence(ctx context.Context) *model.Presence {
	p := &model.Presence{
		Agents:   []any{},
		Channels: []any{},
		Models:   []any{},
		Config:   map[string]any{},
	}

	var wg sync.WaitGroup
	fetchList := func(method string, dst *[]any) {
		defer wg.Done()
		raw, err := s.Call(ctx, method, nil)
		if err != nil {
			s.logger.Warn("presence call failed", "method", method, "error", err)
			return
		}
		var list listPayload
		if err := json.Unmarshal(raw, &list); err != nil {
			s.logger.Warn("unexpected presence payload", "method", method, "error", err.Error())
			return
		}
		if list.Items != nil {
			*dst = list.Items
		}
	}

	wg.Add(4)
	go fetchList(MethodAgentsList, &p.Agents)
	go fetchList(MethodChannelsList, &p.Channels)
	go fetchList(MethodModelsList, &p.Models)
	go func() {
		defer wg.Done()
		raw, err := s.Call(ctx, MethodSystemPresence, nil)
		if err != nil {
			s.logger.Warn("presence call failed", "method", MethodSystemPresence, "error", err)
			return
		}
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			s.logger.Warn("unexpected presence payload", "method", MethodSystemPresence, "error", err.Error())
			return
		}
		if cfg != nil {
			p.Config = cfg
		}
	}()
	wg.Wait()

	return p
}

// ListItems calls a list method and returns its items
func (s *Session) ListItems(ctx context.Context, method string) ([]any, error) {
	raw, err := s.Call(ctx, method, nil)
	if err != nil {
		return nil, err
	}
	var list listPayload
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, goerr.Wrap(model.ErrProtocol, "unexpected list payload",
			goerr.V("method", method), goerr.V("error", err.Error()))
	}
	if list.Items == nil {
		return []any{}, nil
	}
	return list.Items, nil
}

// Close sends a close frame and waits briefly for the peer to acknowledge.
// It is safe to call more than once and on a session that never opened.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}

	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		werr := s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod))
		s.writeMu.Unlock()

		if werr == nil {
			select {
			case <-s.readerDone:
			case <-time.After(closeGracePeriod):
			}
		}

		if cerr := s.conn.Close(); cerr != nil && werr == nil {
			err = goerr.Wrap(cerr, "failed to close gateway connection", goerr.V("url", s.url))
		}
		<-s.readerDone

		s.mu.Lock()
		if s.state != StateFailed {
			s.state = StateClosed
		}
		s.mu.Unlock()
	})
	return err
}

// fail tears down a session whose handshake did not complete
func (s *Session) fail() {
	s.setState(StateFailed)
	s.closeOnce.Do(func() {
		s.conn.Close()
		<-s.readerDone
	})
}
