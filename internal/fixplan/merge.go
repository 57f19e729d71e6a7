package fixplan

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	"dario.cat/mergo"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// MergeSections deep-merges partial section fragments into doc and
// reports whether anything actually changed. Re-applying an identical
// fragment is a no-op. Non-canonical keys in fragments are ignored.
func MergeSections(doc *domain.Document, fragments map[string]any) bool {
	changed := false
	for _, name := range domain.SectionOrder {
		incoming, ok := fragments[name]
		if !ok || incoming == nil {
			continue
		}
		existing := doc.Section(name)
		merged := mergeValue(existing, incoming)
		if reflect.DeepEqual(existing, merged) {
			continue
		}
		doc.SetSection(name, merged)
		changed = true
	}
	return changed
}

// mergeValue merges two section values. Object pairs merge recursively
// with the incoming side winning conflicts; any other pairing is a
// wholesale replacement by the incoming value.
func mergeValue(existing, incoming any) any {
	em, eok := existing.(map[string]any)
	im, iok := incoming.(map[string]any)
	if !eok || !iok {
		return deepCopy(incoming)
	}
	merged := deepCopyMap(em)
	if err := mergo.Merge(&merged, im, mergo.WithOverride); err != nil {
		return deepCopy(incoming)
	}
	return merged
}

// MarshalPlanMap renders a complete plan object as JSON text. Canonical
// sections come first in their fixed order; remaining keys follow in
// sorted order, so generator extras survive storage. "" for empty maps.
func MarshalPlanMap(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	canonical := make(map[string]bool, len(domain.SectionOrder))
	keys := make([]string, 0, len(m))
	for _, name := range domain.SectionOrder {
		canonical[name] = true
		if _, ok := m[name]; ok {
			keys = append(keys, name)
		}
	}
	extras := make([]string, 0, len(m))
	for k := range m {
		if !canonical[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	keys = append(keys, extras...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return ""
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return ""
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.String()
}

// CloneDocument returns a structurally independent copy of doc.
func CloneDocument(doc *domain.Document) *domain.Document {
	if doc == nil {
		return nil
	}
	out := &domain.Document{}
	for _, name := range domain.SectionOrder {
		if v := doc.Section(name); v != nil {
			out.SetSection(name, deepCopy(v))
		}
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, vv := range t {
			out = append(out, deepCopy(vv))
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	return deepCopy(m).(map[string]any)
}
