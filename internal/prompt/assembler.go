package prompt

import (
	"errors"
	"strings"

	"therapy-companion/internal/domain"
	"therapy-companion/internal/router"
)

const sectionSep = "\n\n"

// Assembly is a built instruction together with the routing decision behind it.
// Submode is empty outside the analytic mode.
type Assembly struct {
	Instruction string
	Mode        domain.Mode
	Submode     domain.Submode
}

type strategy func(messages []domain.Message) (string, domain.Submode)

// Assembler concatenates output rules, base preamble and the mode block.
type Assembler struct {
	store      *Store
	route      func(string) domain.Submode
	strategies map[domain.Mode]strategy
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithRouter replaces the keyword router used for the analytic mode.
func WithRouter(route func(string) domain.Submode) AssemblerOption {
	return func(a *Assembler) {
		a.route = route
	}
}

// NewAssembler builds an Assembler over store.
func NewAssembler(store *Store, opts ...AssemblerOption) (*Assembler, error) {
	if store == nil {
		return nil, errors.New("prompt: store must not be nil")
	}
	a := &Assembler{store: store, route: router.Route}
	for _, opt := range opts {
		opt(a)
	}
	if a.route == nil {
		return nil, errors.New("prompt: router must not be nil")
	}

	fixed := func(m domain.Mode) strategy {
		return func([]domain.Message) (string, domain.Submode) {
			return store.ModeBlock(m), ""
		}
	}
	a.strategies = map[domain.Mode]strategy{
		domain.ModeSupport:   fixed(domain.ModeSupport),
		domain.ModeCBT:       fixed(domain.ModeCBT),
		domain.ModeACT:       fixed(domain.ModeACT),
		domain.ModeGrounding: fixed(domain.ModeGrounding),
		domain.ModeEducation: fixed(domain.ModeEducation),
		domain.ModeAnalytic:  a.routeAnalytic,
	}
	return a, nil
}

// Build returns the full system instruction for mode and messages. Unknown
// modes use the support block.
func (a *Assembler) Build(mode domain.Mode, messages []domain.Message) string {
	return a.Explain(mode, messages).Instruction
}

// Explain is Build plus the resolved mode and routed submode.
func (a *Assembler) Explain(mode domain.Mode, messages []domain.Message) Assembly {
	s, ok := a.strategies[mode]
	if !ok {
		mode = domain.ModeSupport
		s = a.strategies[mode]
	}
	block, sm := s(messages)
	return Assembly{
		Instruction: a.join(block),
		Mode:        mode,
		Submode:     sm,
	}
}

// BuildWithSubmode skips routing and forces the analytic submode sm.
func (a *Assembler) BuildWithSubmode(sm domain.Submode) Assembly {
	if _, ok := a.store.submodes[sm]; !ok {
		sm = router.DefaultSubmode
	}
	return Assembly{
		Instruction: a.join(a.analyticBlock(sm)),
		Mode:        domain.ModeAnalytic,
		Submode:     sm,
	}
}

func (a *Assembler) routeAnalytic(messages []domain.Message) (string, domain.Submode) {
	sm := a.route(router.LastUserText(messages))
	return a.analyticBlock(sm), sm
}

func (a *Assembler) analyticBlock(sm domain.Submode) string {
	return a.store.AnalyticBase() + sectionSep + a.store.SubmodeBlock(sm)
}

func (a *Assembler) join(block string) string {
	return strings.Join([]string{
		a.store.OutputRules(),
		a.store.Base(),
		block,
	}, sectionSep)
}
