package domain

import "strings"

// Mode is the top-level conversational stance selected by the client.
type Mode string

const (
	ModeSupport   Mode = "support"
	ModeCBT       Mode = "cbt"
	ModeACT       Mode = "act"
	ModeGrounding Mode = "grounding"
	ModeEducation Mode = "education"
	ModeAnalytic  Mode = "analytic"
)

// Submode selects a psychodynamic block inside the analytic mode.
type Submode string

const (
	SubmodeKeyConcepts           Submode = "key_concepts"
	SubmodeAssessmentFormulation Submode = "assessment_formulation"
	SubmodeGettingStarted        Submode = "getting_started"
	SubmodeInterventions         Submode = "interventions"
	SubmodeGoalsAction           Submode = "goals_action"
	SubmodeResistance            Submode = "resistance"
	SubmodeDreams                Submode = "dreams"
	SubmodeCountertransference   Submode = "countertransference"
	SubmodeTermination           Submode = "termination"
	SubmodeEvidence              Submode = "evidence"
)

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeSupport, ModeCBT, ModeACT, ModeGrounding, ModeEducation, ModeAnalytic}
}

// Submodes lists every analytic submode in chapter order.
func Submodes() []Submode {
	return []Submode{
		SubmodeKeyConcepts,
		SubmodeAssessmentFormulation,
		SubmodeGettingStarted,
		SubmodeInterventions,
		SubmodeGoalsAction,
		SubmodeResistance,
		SubmodeDreams,
		SubmodeCountertransference,
		SubmodeTermination,
		SubmodeEvidence,
	}
}

// modeAliases maps labels sent by the web front-end onto canonical modes.
var modeAliases = map[string]Mode{
	"分析性":           ModeAnalytic,
	"psychodynamic": ModeAnalytic,
}

// ParseMode resolves a client-supplied label. Unknown values fall back to
// ModeSupport.
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes() {
		if string(m) == s {
			return m
		}
	}
	if m, ok := modeAliases[s]; ok {
		return m
	}
	return ModeSupport
}

// ParseSubmode reports whether s names a known submode.
func ParseSubmode(s string) (Submode, bool) {
	s = strings.TrimSpace(s)
	for _, sm := range Submodes() {
		if string(sm) == s {
			return sm, true
		}
	}
	return "", false
}
