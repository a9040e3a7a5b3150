package snapshot

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// Capture stores a snapshot of the presence data under the instance and
// links it to the instance's latest live snapshot with a follows edge. The
// read of the previous snapshot and the write happen in one store update,
// so concurrent captures form a single chain.
func (u *UseCase) Capture(ctx context.Context, instanceID model.RecordID, p *model.Presence) (*model.Record, error) {
	rec, err := model.NewSnapshotRecord(instanceID, p)
	if err != nil {
		return nil, err
	}

	var prev *model.Record
	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		inst := ds.FindLive(instanceID)
		if inst == nil || inst.Type != model.TypeInstance {
			return goerr.Wrap(model.ErrNotFound, "instance not found", goerr.V("instance_id", instanceID))
		}

		prev = nil
		if live := newestFirst(snapshotsOf(ds, instanceID, false)); len(live) > 0 {
			prev = live[0]
		}
		// history order relies on strictly increasing creation times
		if prev != nil && !rec.CreatedAt.After(prev.CreatedAt) {
			rec.CreatedAt = prev.CreatedAt.Add(time.Millisecond)
			rec.UpdatedAt = rec.CreatedAt
		}

		ds.AddRecord(rec)
		ds.AddRelation(model.NewRelation(instanceID, rec.ID, model.RelationParentOf))
		if prev != nil {
			ds.AddRelation(model.NewRelation(rec.ID, prev.ID, model.RelationFollows))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	ev := adapter.SnapshotCaptured{
		InstanceID:   instanceID.String(),
		SnapshotID:   rec.ID.String(),
		AgentCount:   rec.Int("agentCount"),
		ChannelCount: rec.Int("channelCount"),
		ModelCount:   rec.Int("modelCount"),
	}
	if prev != nil {
		ev.PreviousID = prev.ID.String()
	}
	u.publish(ctx, adapter.TopicSnapshotCaptured, ev)

	logging.From(ctx).Debug("snapshot captured", "instance_id", instanceID, "snapshot_id", rec.ID)
	return rec, nil
}

// CaptureLive connects to the instance, fetches presence and captures it.
// The session is closed before returning. A session that closed before
// authenticating yields empty presence, which is captured as such.
func (u *UseCase) CaptureLive(ctx context.Context, instanceID model.RecordID) (*model.Record, error) {
	if u.connector == nil {
		return nil, goerr.New("no connector configured for live capture")
	}

	sess, err := u.connector.Connect(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := u.connector.Disconnect(ctx, instanceID); err != nil {
			logging.From(ctx).Warn("failed to disconnect", "instance_id", instanceID, "error", err)
		}
	}()

	if !sess.Authenticated() {
		logging.From(ctx).Warn("capturing from a session closed before authentication", "instance_id", instanceID)
	}

	return u.Capture(ctx, instanceID, sess.FetchPresence(ctx))
}
