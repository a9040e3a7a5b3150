package instance

import (
	"context"
	"errors"
	"time"

	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// Ping opens a session, measures the handshake round trip and closes it.
// On success status=online, lastPingAt and lastPingLatencyMs are persisted.
// A peer that hangs up before authenticating still counts as online; the
// pinged event carries authenticated=false for it. A failed handshake
// persists "unreachable" and returns the error.
func (u *UseCase) Ping(ctx context.Context, id model.RecordID) (time.Duration, error) {
	start := time.Now()
	sess, err := u.open(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, err
		}
		u.setStatus(ctx, id, model.InstanceStatusUnreachable)
		u.publish(ctx, adapter.TopicInstancePinged, adapter.InstancePinged{
			InstanceID: id.String(),
			Status:     string(model.InstanceStatusUnreachable),
			Error:      err.Error(),
		})
		return 0, err
	}
	latency := time.Since(start)
	authenticated := sess.Authenticated()

	if err := sess.Close(); err != nil {
		logging.From(ctx).Warn("failed to close ping session", "instance_id", id, "error", err)
	}

	if !authenticated {
		logging.From(ctx).Warn("gateway closed the session before authentication", "instance_id", id)
	}

	fields := model.PingResultFields(time.Now(), latency)
	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		rec, err := findInstance(ds, id)
		if err != nil {
			return err
		}
		rec.SetFields(fields)
		return nil
	}); err != nil {
		return 0, err
	}

	u.publish(ctx, adapter.TopicInstancePinged, adapter.InstancePinged{
		InstanceID: id.String(),
		Status:        string(model.InstanceStatusOnline),
		Authenticated: authenticated,
		LatencyMs:     latency.Milliseconds(),
	})
	return latency, nil
}

func (u *UseCase) setStatus(ctx context.Context, id model.RecordID, status model.InstanceStatus) {
	err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		rec, err := findInstance(ds, id)
		if err != nil {
			return err
		}
		rec.SetFields(map[string]any{"status": string(status)})
		return nil
	})
	if err != nil {
		logging.From(ctx).Warn("failed to persist instance status", "instance_id", id, "status", status, "error", err)
	}
}
