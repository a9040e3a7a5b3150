package model

import "slices"

// Dataset is the whole persisted document: every record and relation ever
// written, in insertion order. Soft-deleted records stay in Records.
type Dataset struct {
	Records   []*Record   `json:"records"`
	Relations []*Relation `json:"relations"`
}

// NewDataset returns an empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		Records:   []*Record{},
		Relations: []*Relation{},
	}
}

// Clone returns a deep copy so callers can mutate without touching the store's cache
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{
		Records:   make([]*Record, 0, len(d.Records)),
		Relations: make([]*Relation, 0, len(d.Relations)),
	}
	for _, r := range d.Records {
		c.Records = append(c.Records, r.Clone())
	}
	for _, r := range d.Relations {
		rel := *r
		rel.Metadata = cloneValue(r.Metadata).(map[string]any)
		c.Relations = append(c.Relations, &rel)
	}
	return c
}

// Normalize replaces nil collections with empty ones after decoding
func (d *Dataset) Normalize() {
	if d.Records == nil {
		d.Records = []*Record{}
	}
	if d.Relations == nil {
		d.Relations = []*Relation{}
	}
	for _, r := range d.Records {
		if r.Fields == nil {
			r.Fields = map[string]any{}
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}
	}
	for _, r := range d.Relations {
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
	}
}

// AddRecord appends records
func (d *Dataset) AddRecord(records ...*Record) {
	d.Records = append(d.Records, records...)
}

// AddRelation appends relations
func (d *Dataset) AddRelation(relations ...*Relation) {
	d.Relations = append(d.Relations, relations...)
}

// Find returns the record with id regardless of deletion state, or nil
func (d *Dataset) Find(id RecordID) *Record {
	for _, r := range d.Records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// FindLive returns the live record with id, or nil
func (d *Dataset) FindLive(id RecordID) *Record {
	if r := d.Find(id); r != nil && r.IsLive() {
		return r
	}
	return nil
}

// LiveOf returns live records of the type in insertion order
func (d *Dataset) LiveOf(typeID TypeID) []*Record {
	var out []*Record
	for _, r := range d.Records {
		if r.Type == typeID && r.IsLive() {
			out = append(out, r)
		}
	}
	return out
}

// RelationsFrom returns relations of relType whose source is id
func (d *Dataset) RelationsFrom(id RecordID, relType RelationType) []*Relation {
	var out []*Relation
	for _, r := range d.Relations {
		if r.SourceID == id && r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

// Children returns records linked from parent by parent_of, in record
// insertion order. includeDeleted controls whether soft-deleted records are
// returned. An empty types list matches every type.
func (d *Dataset) Children(parent RecordID, includeDeleted bool, types ...TypeID) []*Record {
	targets := map[RecordID]struct{}{}
	for _, rel := range d.RelationsFrom(parent, RelationParentOf) {
		targets[rel.TargetID] = struct{}{}
	}

	var out []*Record
	for _, r := range d.Records {
		if _, ok := targets[r.ID]; !ok {
			continue
		}
		if !includeDeleted && !r.IsLive() {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, r.Type) {
			continue
		}
		out = append(out, r)
	}
	return out
}
