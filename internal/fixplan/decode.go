// Package fixplan assembles streamed fix-plan fragments into canonical,
// section-ordered plan documents with per-scope progress tracking.
package fixplan

import (
	"encoding/json"
	"strings"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// DecodePlanPayload decodes a global-plan payload. The payload may be a
// flat plan object, an ecosystem-keyed map of plan objects, or a JSON
// string of either, wrapped in markdown code fences and possibly encoded
// twice. At most two parse attempts are made; any failure yields
// PayloadInvalid, never an error.
func DecodePlanPayload(raw string) domain.PlanPayload {
	invalid := domain.PlanPayload{Kind: domain.PayloadInvalid}

	v, ok := parseOnce(raw)
	if !ok {
		return invalid
	}
	if s, isStr := v.(string); isStr {
		if v, ok = parseOnce(s); !ok {
			return invalid
		}
		if _, stillStr := v.(string); stillStr {
			// a third unwrap is never attempted
			return invalid
		}
	}

	m, ok := v.(map[string]any)
	if !ok {
		return invalid
	}
	return classifyPlan(m)
}

func parseOnce(s string) (any, bool) {
	s = stripCodeFences(s)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// stripCodeFences removes a surrounding markdown code fence, including an
// optional language hint on the opening fence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		head := strings.TrimSpace(s[:i])
		if head == "" || !strings.ContainsAny(head, "{[\"") {
			s = s[i+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// classifyPlan decides between a flat plan and an ecosystem-keyed map of
// plans. The payload is ecosystem-keyed when at least one top-level value
// is an object that itself contains a canonical section key.
func classifyPlan(m map[string]any) domain.PlanPayload {
	keyed := false
	ecosystems := make(map[string]map[string]any)
	for k, v := range m {
		sub, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ecosystems[k] = sub
		if containsSectionKey(sub) {
			keyed = true
		}
	}
	if keyed {
		return domain.PlanPayload{Kind: domain.PayloadEcosystem, Ecosystems: ecosystems}
	}
	return domain.PlanPayload{Kind: domain.PayloadFlat, Flat: m}
}

func containsSectionKey(m map[string]any) bool {
	for _, name := range domain.SectionOrder {
		if _, ok := m[name]; ok {
			return true
		}
	}
	return false
}
