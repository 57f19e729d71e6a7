package domain

import "time"

// Canonical fix-plan section names, in emission order.
const (
	SectionExecutiveSummary       = "executive_summary"
	SectionDependencyIntelligence = "dependency_intelligence"
	SectionPriorityPhases         = "priority_phases"
	SectionAutomatedExecution     = "automated_execution"
	SectionRiskManagement         = "risk_management"
	SectionLongTermStrategy       = "long_term_strategy"
	SectionMetadata               = "metadata"
)

// SectionOrder is the fixed canonical section sequence of a fix plan.
var SectionOrder = []string{
	SectionExecutiveSummary,
	SectionDependencyIntelligence,
	SectionPriorityPhases,
	SectionAutomatedExecution,
	SectionRiskManagement,
	SectionLongTermStrategy,
	SectionMetadata,
}

// Generation status values
const (
	StatusIdle       = "idle"
	StatusGenerating = "generating"
)

// ScopeGlobal is the reserved scope key used for unscoped progress and
// for critical errors. Dependency error keys are identity keys and always
// contain "@", so the bare word cannot collide.
const ScopeGlobal = "global"

// Document is a fix plan. Field declaration order is the canonical
// section order; JSON marshalling preserves it, so a stored plan always
// serializes with its sections in sequence.
type Document struct {
	ExecutiveSummary       any `json:"executive_summary,omitempty"`
	DependencyIntelligence any `json:"dependency_intelligence,omitempty"`
	PriorityPhases         any `json:"priority_phases,omitempty"`
	AutomatedExecution     any `json:"automated_execution,omitempty"`
	RiskManagement         any `json:"risk_management,omitempty"`
	LongTermStrategy       any `json:"long_term_strategy,omitempty"`
	Metadata               any `json:"metadata,omitempty"`
}

// Section returns the named canonical section, nil for unknown names.
func (d *Document) Section(name string) any {
	switch name {
	case SectionExecutiveSummary:
		return d.ExecutiveSummary
	case SectionDependencyIntelligence:
		return d.DependencyIntelligence
	case SectionPriorityPhases:
		return d.PriorityPhases
	case SectionAutomatedExecution:
		return d.AutomatedExecution
	case SectionRiskManagement:
		return d.RiskManagement
	case SectionLongTermStrategy:
		return d.LongTermStrategy
	case SectionMetadata:
		return d.Metadata
	}
	return nil
}

// SetSection sets the named canonical section. Unknown names are ignored
// and reported false.
func (d *Document) SetSection(name string, v any) bool {
	switch name {
	case SectionExecutiveSummary:
		d.ExecutiveSummary = v
	case SectionDependencyIntelligence:
		d.DependencyIntelligence = v
	case SectionPriorityPhases:
		d.PriorityPhases = v
	case SectionAutomatedExecution:
		d.AutomatedExecution = v
	case SectionRiskManagement:
		d.RiskManagement = v
	case SectionLongTermStrategy:
		d.LongTermStrategy = v
	case SectionMetadata:
		d.Metadata = v
	default:
		return false
	}
	return true
}

// IsEmpty reports whether no section carries content.
func (d *Document) IsEmpty() bool {
	for _, name := range SectionOrder {
		if d.Section(name) != nil {
			return false
		}
	}
	return true
}

// CacheEntry is the cached fix-plan state for one `owner/repo/branch`
// key. Created on the first plan byte received, overwritten wholesale on
// regeneration, deleted only by explicit reset.
type CacheEntry struct {
	GlobalFixPlan            string               `json:"global_fix_plan,omitempty"`
	EcosystemFixPlans        map[string]string    `json:"ecosystem_fix_plans,omitempty"`
	EcosystemPartialFixPlans map[string]*Document `json:"ecosystem_partial_fix_plans,omitempty"`
	HasMultipleEcosystems    bool                 `json:"has_multiple_ecosystems"`
	IsFixPlanGenerated       bool                 `json:"is_fix_plan_generated"`
	Timestamp                time.Time            `json:"timestamp"`
}

// HasPlan reports whether any complete plan content is cached.
func (e CacheEntry) HasPlan() bool {
	return e.GlobalFixPlan != "" || len(e.EcosystemFixPlans) > 0
}

// Progress is the generation progress for one scope.
type Progress struct {
	Phase   string  `json:"phase,omitempty"`
	Step    string  `json:"step,omitempty"`
	Message string  `json:"message,omitempty"`
	Percent float64 `json:"percent"`
}

// State is the aggregate generation view for one repository context.
// Revision increases once per observable change, letting readers detect
// updates without diffing.
type State struct {
	Status   string               `json:"status"`
	Revision int64                `json:"revision"`
	Entry    CacheEntry           `json:"entry"`
	Progress map[string]*Progress `json:"progress,omitempty"`
	Errors   map[string]string    `json:"errors,omitempty"`
}

// PayloadKind tags the decoded shape of a global-plan payload.
type PayloadKind int

const (
	PayloadInvalid PayloadKind = iota
	PayloadFlat
	PayloadEcosystem
)

// PlanPayload is the tagged result of decoding a global-plan payload.
type PlanPayload struct {
	Kind       PayloadKind
	Flat       map[string]any
	Ecosystems map[string]map[string]any
}

// PlanKey identifies one repository context.
type PlanKey struct {
	Owner  string
	Repo   string
	Branch string
}

// String renders the `owner/repo/branch` cache key.
func (k PlanKey) String() string {
	return k.Owner + "/" + k.Repo + "/" + k.Branch
}
