package snapshot

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// History returns the live snapshots of the instance ordered by walking the
// follows chain from its head, newest first. Deleted snapshots are walked
// through but not returned. When the chain has no unambiguous head, branches,
// loops, or misses live snapshots, the order falls back to creation time.
func (u *UseCase) History(ctx context.Context, instanceID model.RecordID) ([]*model.Record, error) {
	ds, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	all := snapshotsOf(ds, instanceID, true)
	if chain, ok := walkChain(ds, all); ok {
		return chain, nil
	}

	logging.From(ctx).Warn("snapshot chain is inconsistent, ordering by creation time", "instance_id", instanceID)
	return newestFirst(snapshotsOf(ds, instanceID, false)), nil
}

func walkChain(ds *model.Dataset, nodes []*model.Record) ([]*model.Record, bool) {
	if len(nodes) == 0 {
		return []*model.Record{}, true
	}

	byID := make(map[model.RecordID]*model.Record, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	next := map[model.RecordID][]model.RecordID{}
	targeted := map[model.RecordID]bool{}
	for _, rel := range ds.Relations {
		if rel.Type != model.RelationFollows {
			continue
		}
		if byID[rel.SourceID] == nil || byID[rel.TargetID] == nil {
			continue
		}
		next[rel.SourceID] = append(next[rel.SourceID], rel.TargetID)
		targeted[rel.TargetID] = true
	}

	liveCount := 0
	for _, n := range nodes {
		if n.IsLive() {
			liveCount++
		}
	}

	var (
		result []*model.Record
		found  int
	)
	for _, head := range nodes {
		if targeted[head.ID] {
			continue
		}
		chain, ok := walkFrom(head, byID, next)
		if !ok || len(chain) != liveCount {
			continue
		}
		found++
		result = chain
	}
	if found != 1 {
		return nil, false
	}
	return result, true
}

// walkFrom follows edges from head and returns the live nodes visited. It
// fails on a branch or a loop.
func walkFrom(head *model.Record, byID map[model.RecordID]*model.Record, next map[model.RecordID][]model.RecordID) ([]*model.Record, bool) {
	out := []*model.Record{}
	visited := map[model.RecordID]bool{}
	for cur := head; cur != nil; {
		if visited[cur.ID] {
			return nil, false
		}
		visited[cur.ID] = true
		if cur.IsLive() {
			out = append(out, cur)
		}

		edges := next[cur.ID]
		switch len(edges) {
		case 0:
			cur = nil
		case 1:
			cur = byID[edges[0]]
		default:
			return nil, false
		}
	}
	return out, true
}
