package hook

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// Registry holds the ordered hook lists of one application scope.
// Hooks are appended during setup only; after Seal the registry is read-only and
// safe to share between concurrently served requests.
type Registry[C Context] struct {
	request  map[Phase][]Hook[C]
	app      map[Phase][]AppHook
	route    []RouteFunc
	register []RegisterFunc
	sealed   bool
	logger   *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger discards hook warnings.
func NewRegistry[C Context](logger *slog.Logger) *Registry[C] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry[C]{
		request: make(map[Phase][]Hook[C], len(RequestPhases)),
		app:     make(map[Phase][]AppHook, 4),
		logger:  logger,
	}
	for _, p := range RequestPhases {
		r.request[p] = nil
	}
	for _, p := range ApplicationPhases {
		if p.IsLifecycle() {
			r.app[p] = nil
		}
	}
	return r
}

// Add classifies fn and appends it to the list of phase.
func (r *Registry[C]) Add(phase Phase, fn any) error {
	if phase == "" {
		return ErrInvalidPhaseType
	}
	if !phase.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedPhase, phase)
	}
	if r.sealed {
		return fmt.Errorf("%w: cannot add %s hook", ErrRegistrySealed, phase)
	}

	switch phase.family() {
	case familyLifecycle:
		h, err := newAppHook(phase, fn, r.logger)
		if err != nil {
			return err
		}
		r.app[phase] = append(r.app[phase], h)

	case familyRoute:
		var h RouteFunc
		switch f := fn.(type) {
		case RouteFunc:
			h = f
		case func(RouteInfo) error:
			h = f
		}
		if h == nil {
			return invalidHandler(phase, fn)
		}
		r.route = append(r.route, h)

	case familyRegister:
		var h RegisterFunc
		switch f := fn.(type) {
		case RegisterFunc:
			h = f
		case func(ScopeInfo) error:
			h = f
		}
		if h == nil {
			return invalidHandler(phase, fn)
		}
		r.register = append(r.register, h)

	default:
		h, err := newHook[C](phase, fn, r.logger)
		if err != nil {
			return err
		}
		r.request[phase] = append(r.request[phase], h)
	}

	return nil
}

// Request returns the hooks of a per-request phase in registration order.
func (r *Registry[C]) Request(phase Phase) []Hook[C] {
	return r.request[phase]
}

// App returns the hooks of a lifecycle phase in registration order.
func (r *Registry[C]) App(phase Phase) []AppHook {
	return r.app[phase]
}

// RouteHooks returns the onRoute hooks.
func (r *Registry[C]) RouteHooks() []RouteFunc {
	return r.route
}

// RegisterHooks returns the onRegister hooks.
func (r *Registry[C]) RegisterHooks() []RegisterFunc {
	return r.register
}

// Len returns the number of hooks registered for phase.
func (r *Registry[C]) Len(phase Phase) int {
	switch phase.family() {
	case familyLifecycle:
		return len(r.app[phase])
	case familyRoute:
		return len(r.route)
	case familyRegister:
		return len(r.register)
	case familyUnknown:
		return 0
	default:
		return len(r.request[phase])
	}
}

// Clone returns an unsealed registry for a child scope. Per-request, onRoute and
// onRegister lists are copied so later additions on either side stay independent.
// Lifecycle lists start empty: every scope owns its own startup sequence.
func (r *Registry[C]) Clone() *Registry[C] {
	c := NewRegistry[C](r.logger)
	for p, hooks := range r.request {
		c.request[p] = slices.Clone(hooks)
	}
	c.route = slices.Clone(r.route)
	c.register = slices.Clone(r.register)
	return c
}

// Seal makes the registry read-only.
func (r *Registry[C]) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry[C]) Sealed() bool {
	return r.sealed
}

func invalidHandler(phase Phase, fn any) error {
	if fn == nil {
		return fmt.Errorf("%w: nil function for %s", ErrInvalidHandler, phase)
	}
	return fmt.Errorf("%w: %T cannot be used for %s", ErrInvalidHandler, fn, phase)
}
