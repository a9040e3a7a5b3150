package model

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Presence is the live aggregate fetched from a connected gateway
type Presence struct {
	Agents   []any          `json:"agents"`
	Channels []any          `json:"channels"`
	Models   []any          `json:"models"`
	Config   map[string]any `json:"config"`
}

// NewSnapshotRecord builds a snapshot record for the instance from presence
// data. Config is stored as serialized JSON text.
func NewSnapshotRecord(instanceID RecordID, p *Presence) (*Record, error) {
	if instanceID == "" {
		return nil, goerr.Wrap(ErrValidation, "instanceId is required")
	}
	if p == nil {
		p = &Presence{}
	}
	cfg := p.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, goerr.Wrap(ErrValidation, "config is not serializable", goerr.V("error", err.Error()))
	}

	now := time.Now().UTC()
	rec := NewRecord(TypeSnapshot, "Snapshot "+now.Format(time.RFC3339Nano), map[string]any{
		"instanceId":   string(instanceID),
		"capturedAt":   now.Format(time.RFC3339Nano),
		"config":       string(raw),
		"agentCount":   len(p.Agents),
		"channelCount": len(p.Channels),
		"modelCount":   len(p.Models),
	})
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return rec, nil
}

// SnapshotConfig decodes the serialized config of a snapshot record
func SnapshotConfig(r *Record) (map[string]any, error) {
	out := map[string]any{}
	raw := r.String("config")
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, goerr.Wrap(ErrValidation, "snapshot config is not valid JSON",
			goerr.V("snapshot_id", r.ID), goerr.V("error", err.Error()))
	}
	return out, nil
}

// FieldDiff is a changed value. An absent side is nil.
type FieldDiff struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// DiffFields compares the field maps of two records. Values are compared by
// their JSON encoding so 2 and 2.0 are equal and nested values compare
// structurally. Nested JSON inside a string field is compared as text.
func DiffFields(a, b *Record) map[string]FieldDiff {
	diff := map[string]FieldDiff{}
	for _, key := range unionKeys(a.Fields, b.Fields) {
		va, vb := a.Fields[key], b.Fields[key]
		if !SameValue(va, vb) {
			diff[key] = FieldDiff{From: va, To: vb}
		}
	}
	return diff
}

// SameValue reports structural equality via canonical JSON encoding
func SameValue(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
