package model

import (
	"time"

	"github.com/google/uuid"
)

type RecordID string

// NewRecordID generates a new unique RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

func (x RecordID) String() string { return string(x) }

// TypeID identifies the schema of a record by its slug, e.g. "openclaw-instance"
type TypeID string

// Record is the generic typed record persisted by the store. Specialized
// entities (instances, snapshots, config sections) are views over it.
type Record struct {
	ID        RecordID       `json:"id" firestore:"id"`
	Type      TypeID         `json:"type" firestore:"type"`
	Title     string         `json:"title" firestore:"title"`
	Fields    map[string]any `json:"fields" firestore:"fields"`
	Tags      []string       `json:"tags" firestore:"tags"`
	CreatedAt time.Time      `json:"createdAt" firestore:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" firestore:"updated_at"`
	Version   int            `json:"version" firestore:"version"`
	DeletedAt *time.Time     `json:"deletedAt,omitempty" firestore:"deleted_at,omitempty"`
}

// NewRecord creates a version 1 record of the given type. Fields are copied.
func NewRecord(typeID TypeID, title string, fields map[string]any) *Record {
	now := time.Now().UTC()
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Record{
		ID:        NewRecordID(),
		Type:      typeID,
		Title:     title,
		Fields:    copied,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// IsLive reports whether the record has not been soft-deleted
func (r *Record) IsLive() bool {
	return r.DeletedAt == nil
}

// Touch bumps version and updatedAt. Every mutation must call it.
func (r *Record) Touch() {
	r.Version++
	r.UpdatedAt = time.Now().UTC()
}

// SoftDelete marks the record as deleted without erasing it
func (r *Record) SoftDelete() {
	now := time.Now().UTC()
	r.DeletedAt = &now
	r.Touch()
}

// SetFields merges values into the record fields and touches the record
func (r *Record) SetFields(values map[string]any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any, len(values))
	}
	for k, v := range values {
		r.Fields[k] = v
	}
	r.Touch()
}

// String returns the string field value, or "" when absent or not a string
func (r *Record) String(key string) string {
	if v, ok := r.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the numeric field value truncated to int. Values decoded from
// JSON arrive as float64, values set in process may be any integer type.
func (r *Record) Int(key string) int {
	switch v := r.Fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Clone returns a deep copy of the record. Field values are copied via
// cloneValue so nested maps and slices are not shared.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = cloneValue(r.Fields).(map[string]any)
	c.Tags = append([]string{}, r.Tags...)
	if r.DeletedAt != nil {
		d := *r.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return x
	}
}

type RelationID string

// NewRelationID generates a new unique RelationID
func NewRelationID() RelationID {
	return RelationID(uuid.New().String())
}

type RelationType string

const (
	RelationParentOf RelationType = "parent_of"
	RelationFollows  RelationType = "follows"
)

// Relation is a directed typed edge between two records
type Relation struct {
	ID        RelationID     `json:"id" firestore:"id"`
	SourceID  RecordID       `json:"sourceId" firestore:"source_id"`
	TargetID  RecordID       `json:"targetId" firestore:"target_id"`
	Type      RelationType   `json:"type" firestore:"type"`
	CreatedAt time.Time      `json:"createdAt" firestore:"created_at"`
	Metadata  map[string]any `json:"metadata" firestore:"metadata"`
}

// NewRelation creates a relation from source to target
func NewRelation(source, target RecordID, relType RelationType) *Relation {
	return &Relation{
		ID:        NewRelationID(),
		SourceID:  source,
		TargetID:  target,
		Type:      relType,
		CreatedAt: time.Now().UTC(),
		Metadata:  map[string]any{},
	}
}
