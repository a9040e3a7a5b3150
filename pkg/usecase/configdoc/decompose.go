package configdoc

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

// Decomposed is the flat form of a configuration document: one child record
// per list entry or present singleton, each paired with a parent_of relation
type Decomposed struct {
	Records   []*model.Record
	Relations []*model.Relation
}

// Decompose maps cfg to child records of parent with per-field defaults
// applied. Absent sections produce no records.
func Decompose(cfg *model.Config, parent model.RecordID) *Decomposed {
	out := &Decomposed{
		Records:   []*model.Record{},
		Relations: []*model.Relation{},
	}
	if cfg == nil {
		return out
	}

	for _, s := range cfg.Sections() {
		rec := model.NewRecord(s.Kind().Info().TypeID, s.Title(), s.Fields())
		out.Records = append(out.Records, rec)
		out.Relations = append(out.Relations, model.NewRelation(parent, rec.ID, model.RelationParentOf))
	}
	return out
}

// Validate checks every record against its type schema
func (d *Decomposed) Validate() error {
	for _, rec := range d.Records {
		def, ok := model.LookupType(rec.Type)
		if !ok {
			return goerr.Wrap(model.ErrValidation, "unknown record type", goerr.V("type", rec.Type))
		}
		if err := def.Validate(rec); err != nil {
			return err
		}
	}
	return nil
}

// Compose rebuilds the configuration document from the live section children
// of instanceID. List sections keep the insertion order of their records.
func Compose(ds *model.Dataset, instanceID model.RecordID) (*model.Config, error) {
	cfg := &model.Config{}
	for _, rec := range ds.Children(instanceID, false, sectionTypes()...) {
		s, err := model.SectionFromRecord(rec)
		if err != nil {
			return nil, err
		}
		cfg.Add(s)
	}
	return cfg, nil
}

// Diff compares two documents structurally
func Diff(a, b *model.Config) (*model.ConfigDiff, error) {
	ma, err := toMap(a)
	if err != nil {
		return nil, err
	}
	mb, err := toMap(b)
	if err != nil {
		return nil, err
	}
	return model.DiffConfigMaps(ma, mb), nil
}

func toMap(cfg *model.Config) (map[string]any, error) {
	if cfg == nil {
		return map[string]any{}, nil
	}
	return cfg.ToMap()
}
