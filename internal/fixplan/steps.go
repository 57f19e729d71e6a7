package fixplan

// Generation phases, in the order the generator walks them.
const (
	PhaseAnalysis     = "analysis"
	PhasePlanning     = "planning"
	PhaseValidation   = "validation"
	PhaseFinalization = "finalization"
)

// stepPhases maps generator step identifiers to phases.
var stepPhases = map[string]string{
	"initializing":             PhaseAnalysis,
	"scanning_vulnerabilities": PhaseAnalysis,
	"analyzing_dependencies":   PhaseAnalysis,
	"resolving_upgrades":       PhasePlanning,
	"building_phases":          PhasePlanning,
	"validating_compatibility": PhaseValidation,
	"simulating_upgrades":      PhaseValidation,
	"finalizing_plan":          PhaseFinalization,
	"writing_summary":          PhaseFinalization,
}

// PhaseForStep returns the phase a generator step belongs to, "" for
// unknown steps so callers keep the current phase.
func PhaseForStep(step string) string {
	return stepPhases[step]
}
