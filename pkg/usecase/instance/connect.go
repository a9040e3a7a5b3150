package instance

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// Connect opens a session to the instance and tracks it for Disconnect. A
// session already tracked for the instance is closed and replaced.
func (u *UseCase) Connect(ctx context.Context, id model.RecordID) (*gateway.Session, error) {
	sess, err := u.open(ctx, id)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	prev := u.sessions[id]
	u.sessions[id] = sess
	u.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			logging.From(ctx).Warn("failed to close replaced session", "instance_id", id, "error", err)
		}
	}
	return sess, nil
}

// Disconnect closes and forgets the tracked session of the instance. It is
// a no-op when no session is tracked.
func (u *UseCase) Disconnect(ctx context.Context, id model.RecordID) error {
	u.mu.Lock()
	sess := u.sessions[id]
	delete(u.sessions, id)
	u.mu.Unlock()

	return sess.Close()
}

// DisconnectAll closes every tracked session
func (u *UseCase) DisconnectAll(ctx context.Context) {
	u.mu.Lock()
	sessions := u.sessions
	u.sessions = map[model.RecordID]*gateway.Session{}
	u.mu.Unlock()

	for id, sess := range sessions {
		if err := sess.Close(); err != nil {
			logging.From(ctx).Warn("failed to close session", "instance_id", id, "error", err)
		}
	}
}

// open resolves the endpoint of the instance and runs the handshake
// without tracking the session
func (u *UseCase) open(ctx context.Context, id model.RecordID) (*gateway.Session, error) {
	rec, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ep := model.EndpointOf(rec)

	opts := append([]gateway.Option{}, u.sessionOpts...)
	if ep.Token != "" {
		opts = append(opts, gateway.WithToken(ep.Token))
	}
	if ep.DevicePrivateKey != "" {
		opts = append(opts, gateway.WithPrivateKey(ep.DevicePrivateKey))
	}
	u.mu.Lock()
	if token := u.deviceTokens[id]; token != "" {
		opts = append(opts, gateway.WithDeviceToken(token))
	}
	u.mu.Unlock()

	sess, err := gateway.Open(ctx, ep.URL, opts...)
	if err != nil {
		return nil, err
	}

	if token := sess.DeviceToken(); token != "" {
		u.mu.Lock()
		u.deviceTokens[id] = token
		u.mu.Unlock()
	}
	return sess, nil
}
