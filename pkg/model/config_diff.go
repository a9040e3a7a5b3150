package model

import "encoding/json"

// ConfigDiff is the structural difference between two config documents.
// Keys are document keys; sections without differences are absent.
type ConfigDiff struct {
	// Added holds list items ([]any) or whole singleton objects present only in the second document
	Added map[string]any `json:"added"`
	// Removed holds list items or singleton objects present only in the first document
	Removed map[string]any `json:"removed"`
	// Changed holds per-field changes of singleton sections present in both documents
	Changed map[string]map[string]FieldDiff `json:"changed"`
}

// IsEmpty reports whether the documents were equal in every known section
func (d *ConfigDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffConfigMaps compares two config documents in generic form. List items are
// identified by their "name" value, falling back to their canonical JSON.
// A modified unnamed item shows up as one removal plus one addition; a
// named item whose other fields changed is not reported.
func DiffConfigMaps(a, b map[string]any) *ConfigDiff {
	diff := &ConfigDiff{
		Added:   map[string]any{},
		Removed: map[string]any{},
		Changed: map[string]map[string]FieldDiff{},
	}

	for _, info := range sectionInfos {
		if info.List {
			itemsA, itemsB := listOf(a[info.Key]), listOf(b[info.Key])
			if added := missingItems(itemsB, itemsA); len(added) > 0 {
				diff.Added[info.Key] = added
			}
			if removed := missingItems(itemsA, itemsB); len(removed) > 0 {
				diff.Removed[info.Key] = removed
			}
			continue
		}

		objA, objB := objectOf(a[info.Key]), objectOf(b[info.Key])
		switch {
		case len(objA) == 0 && len(objB) > 0:
			diff.Added[info.Key] = objB
		case len(objA) > 0 && len(objB) == 0:
			diff.Removed[info.Key] = objA
		case len(objA) > 0 && len(objB) > 0:
			fields := map[string]FieldDiff{}
			for _, k := range unionKeys(objA, objB) {
				if !SameValue(objA[k], objB[k]) {
					fields[k] = FieldDiff{From: objA[k], To: objB[k]}
				}
			}
			if len(fields) > 0 {
				diff.Changed[info.Key] = fields
			}
		}
	}

	return diff
}

// missingItems returns items of src whose identity is not found in other
func missingItems(src, other []any) []any {
	known := make(map[string]struct{}, len(other))
	for _, item := range other {
		known[itemIdentity(item)] = struct{}{}
	}
	var out []any
	for _, item := range src {
		if _, ok := known[itemIdentity(item)]; !ok {
			out = append(out, item)
		}
	}
	return out
}

func itemIdentity(item any) string {
	if obj, ok := item.(map[string]any); ok {
		if name, ok := obj["name"]; ok {
			if s, ok := name.(string); ok {
				return "name:" + s
			}
		}
	}
	raw, _ := json.Marshal(item)
	return "json:" + string(raw)
}

func listOf(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	return nil
}

func objectOf(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return nil
}
