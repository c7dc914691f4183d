// Package hooking provides the observability hook mechanism the controller
// uses for command-issue and completion tracing: a small registry of Hook
// callbacks any Hookable component can invoke at points of interest,
// without those components needing to know what, if anything, is
// listening.
package hooking

// Pos names a point in a component's execution where a hook may fire.
type Pos struct {
	Name string
}

// Points this module's controller invokes hooks at.
var (
	PosCommandIssue    = &Pos{Name: "CommandIssue"}
	PosRequestComplete = &Pos{Name: "RequestComplete"}
	PosRefreshIssue    = &Pos{Name: "RefreshIssue"}
	PosViolationLogged = &Pos{Name: "ViolationLogged"}
)

// Ctx carries the information about the site a hook fired at.
type Ctx struct {
	Domain Hookable
	Pos    *Pos
	Item   interface{}
	Detail interface{}
}

// Hookable is an object that accepts Hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook is invoked by a Hookable at points of interest.
type Hook interface {
	Func(ctx Ctx)
}

// HookableBase is an embeddable implementation of Hookable.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int { return len(h.hooks) }

// Hooks returns all registered hooks.
func (h *HookableBase) Hooks() []Hook { return h.hooks }

// AcceptHook registers a hook. It panics if the same hook is registered
// twice, since that almost always indicates a wiring mistake.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hooks {
		if existing == hook {
			panic("hooking: duplicated hook")
		}
	}
	h.hooks = append(h.hooks, hook)
}

// InvokeHook triggers every registered hook with ctx.
func (h *HookableBase) InvokeHook(ctx Ctx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
