package fixplan

import (
	"strings"
	"time"

	"github.com/depscope/depscope-backend/internal/fixplan/domain"
)

// Aggregator is the single-consumer state machine for one repository
// context. It applies generator events strictly in arrival order; every
// method that mutates state reports whether the change was observable so
// callers can suppress redundant notifications. The aggregator itself is
// not goroutine-safe; the owning service serializes access.
type Aggregator struct {
	repoKey string
	state   domain.State
}

// NewAggregator creates an idle aggregator for repoKey.
func NewAggregator(repoKey string) *Aggregator {
	return &Aggregator{
		repoKey: repoKey,
		state: domain.State{
			Status:   domain.StatusIdle,
			Progress: make(map[string]*domain.Progress),
			Errors:   make(map[string]string),
		},
	}
}

// Seed primes the aggregator with a previously cached entry, typically
// loaded from the plan cache at session start.
func (a *Aggregator) Seed(entry domain.CacheEntry) {
	a.state.Entry = entry
}

// Begin starts a new generation: the cache entry is replaced wholesale
// and progress and error state from any earlier run is dropped.
func (a *Aggregator) Begin() {
	a.state.Status = domain.StatusGenerating
	a.state.Entry = domain.CacheEntry{}
	a.state.Progress = make(map[string]*domain.Progress)
	a.state.Errors = make(map[string]string)
	a.state.Revision++
}

// Stop forces the aggregator back to idle, used when a subscription is
// torn down without a completion event.
func (a *Aggregator) Stop() {
	if a.state.Status != domain.StatusIdle {
		a.state.Status = domain.StatusIdle
		a.state.Revision++
	}
}

// Generating reports whether a generation is in flight.
func (a *Aggregator) Generating() bool {
	return a.state.Status == domain.StatusGenerating
}

// Entry returns the current cache entry.
func (a *Aggregator) Entry() domain.CacheEntry {
	return a.state.Entry
}

// Apply dispatches one stream event and reports whether state observably
// changed. Malformed events degrade to no-ops, never failures.
func (a *Aggregator) Apply(ev domain.StreamEvent) bool {
	changed := false
	switch ev.Kind {
	case domain.EventKindPlan:
		changed = a.applyPlan(ev)
	case domain.EventKindProgress:
		changed = a.applyProgress(ev)
	case domain.EventKindError:
		changed = a.applyError(ev)
	case domain.EventKindComplete:
		changed = a.applyComplete()
	}
	if changed {
		a.state.Revision++
	}
	return changed
}

func (a *Aggregator) applyPlan(ev domain.StreamEvent) bool {
	payload := DecodePlanPayload(ev.Plan)
	switch payload.Kind {
	case domain.PayloadFlat:
		text := MarshalPlanMap(payload.Flat)
		if text == "" {
			return false
		}
		if ev.Ecosystem == "" {
			return a.storeGlobalPlan(text)
		}
		return a.storeEcosystemPlan(ev.Ecosystem, text, true)
	case domain.PayloadEcosystem:
		changed := false
		names := make([]string, 0, len(payload.Ecosystems))
		for eco, plan := range payload.Ecosystems {
			text := MarshalPlanMap(plan)
			if text == "" {
				continue
			}
			names = append(names, eco)
			if a.storeEcosystemPlan(eco, text, false) {
				changed = true
			}
		}
		// a single ecosystem mirrors into the legacy global slot
		if len(names) == 1 {
			if a.state.Entry.GlobalFixPlan != a.state.Entry.EcosystemFixPlans[names[0]] {
				a.state.Entry.GlobalFixPlan = a.state.Entry.EcosystemFixPlans[names[0]]
				a.touchEntry()
				changed = true
			}
		}
		return changed
	}
	// an unparseable payload decodes to an empty plan and changes nothing
	return false
}

func (a *Aggregator) storeGlobalPlan(text string) bool {
	if a.state.Entry.GlobalFixPlan == text {
		return false
	}
	a.state.Entry.GlobalFixPlan = text
	a.touchEntry()
	return true
}

func (a *Aggregator) storeEcosystemPlan(eco, text string, mirrorSingle bool) bool {
	if a.state.Entry.EcosystemFixPlans == nil {
		a.state.Entry.EcosystemFixPlans = make(map[string]string)
	}
	changed := false
	if a.state.Entry.EcosystemFixPlans[eco] != text {
		a.state.Entry.EcosystemFixPlans[eco] = text
		changed = true
	}
	if mirrorSingle && len(a.state.Entry.EcosystemFixPlans) == 1 && a.state.Entry.GlobalFixPlan != text {
		a.state.Entry.GlobalFixPlan = text
		changed = true
	}
	multiple := len(a.state.Entry.EcosystemFixPlans) > 1
	if a.state.Entry.HasMultipleEcosystems != multiple {
		a.state.Entry.HasMultipleEcosystems = multiple
		changed = true
	}
	if changed {
		a.touchEntry()
	}
	return changed
}

func (a *Aggregator) applyProgress(ev domain.StreamEvent) bool {
	scope := normalizeScope(ev.Ecosystem)
	changed := false

	p := a.state.Progress[scope]
	if p == nil {
		p = &domain.Progress{}
	}
	if ev.Step != "" && ev.Step != p.Step {
		p.Step = ev.Step
		changed = true
		if phase := PhaseForStep(ev.Step); phase != "" && phase != p.Phase {
			p.Phase = phase
		}
	}
	if ev.Message != "" && ev.Message != p.Message {
		p.Message = ev.Message
		changed = true
	}
	if ev.Percent != p.Percent {
		p.Percent = ev.Percent
		changed = true
	}
	if changed {
		a.state.Progress[scope] = p
	}

	if len(ev.Sections) > 0 {
		if a.state.Entry.EcosystemPartialFixPlans == nil {
			a.state.Entry.EcosystemPartialFixPlans = make(map[string]*domain.Document)
		}
		partial := a.state.Entry.EcosystemPartialFixPlans[scope]
		if partial == nil {
			partial = &domain.Document{}
			a.state.Entry.EcosystemPartialFixPlans[scope] = partial
		}
		if MergeSections(partial, ev.Sections) {
			a.touchEntry()
			changed = true
		}
	}
	return changed
}

func (a *Aggregator) applyError(ev domain.StreamEvent) bool {
	dep := dependencyToken(ev.Message)
	if ev.Critical || dep == "" {
		// critical errors halt the generation under the reserved key
		changed := false
		if a.state.Errors[domain.ScopeGlobal] != ev.Message {
			a.state.Errors[domain.ScopeGlobal] = ev.Message
			changed = true
		}
		if a.state.Status != domain.StatusIdle {
			a.state.Status = domain.StatusIdle
			changed = true
		}
		return changed
	}
	if a.state.Errors[dep] == ev.Message {
		return false
	}
	a.state.Errors[dep] = ev.Message
	return true
}

func (a *Aggregator) applyComplete() bool {
	changed := false
	if !a.state.Entry.IsFixPlanGenerated {
		a.state.Entry.IsFixPlanGenerated = true
		a.touchEntry()
		changed = true
	}
	if a.state.Status != domain.StatusIdle {
		a.state.Status = domain.StatusIdle
		changed = true
	}
	return changed
}

// touchEntry stamps the entry on first content.
func (a *Aggregator) touchEntry() {
	if a.state.Entry.Timestamp.IsZero() {
		a.state.Entry.Timestamp = time.Now()
	}
}

// Snapshot returns a structurally independent copy of the current state,
// safe for callers to retain while events continue to apply.
func (a *Aggregator) Snapshot() domain.State {
	out := domain.State{
		Status:   a.state.Status,
		Revision: a.state.Revision,
		Entry: domain.CacheEntry{
			GlobalFixPlan:         a.state.Entry.GlobalFixPlan,
			HasMultipleEcosystems: a.state.Entry.HasMultipleEcosystems,
			IsFixPlanGenerated:    a.state.Entry.IsFixPlanGenerated,
			Timestamp:             a.state.Entry.Timestamp,
		},
	}
	if len(a.state.Entry.EcosystemFixPlans) > 0 {
		out.Entry.EcosystemFixPlans = make(map[string]string, len(a.state.Entry.EcosystemFixPlans))
		for k, v := range a.state.Entry.EcosystemFixPlans {
			out.Entry.EcosystemFixPlans[k] = v
		}
	}
	if len(a.state.Entry.EcosystemPartialFixPlans) > 0 {
		out.Entry.EcosystemPartialFixPlans = make(map[string]*domain.Document, len(a.state.Entry.EcosystemPartialFixPlans))
		for k, v := range a.state.Entry.EcosystemPartialFixPlans {
			out.Entry.EcosystemPartialFixPlans[k] = CloneDocument(v)
		}
	}
	if len(a.state.Progress) > 0 {
		out.Progress = make(map[string]*domain.Progress, len(a.state.Progress))
		for k, v := range a.state.Progress {
			p := *v
			out.Progress[k] = &p
		}
	}
	if len(a.state.Errors) > 0 {
		out.Errors = make(map[string]string, len(a.state.Errors))
		for k, v := range a.state.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

func normalizeScope(ecosystem string) string {
	if ecosystem == "" {
		return domain.ScopeGlobal
	}
	return ecosystem
}

// dependencyToken finds a `name@version`-shaped token in an error
// message: whitespace-delimited, containing "@", longer than 3 runes.
// "" means the message names no dependency.
func dependencyToken(message string) string {
	for _, tok := range strings.Fields(message) {
		if len(tok) > 3 && strings.Contains(tok, "@") {
			return tok
		}
	}
	return ""
}
