package render

import (
	"context"
	"math"

	vorerrors "github.com/vormap/vormap/pkg/errors"
	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/snapshot"
)

// State is the orchestrator's lifecycle phase.
type State string

// Orchestrator states.
const (
	StateIdle      State = "idle"
	StateComputing State = "computing"
	StateRendering State = "rendering"
	StateReady     State = "ready"
)

// Trigger names the reason a recomputation was requested.
type Trigger string

// Recomputation triggers.
const (
	TriggerPathChange Trigger = "path_change"
	TriggerDataChange Trigger = "data_change"
	TriggerResize     Trigger = "resize"
	TriggerTheme      Trigger = "theme_change"
	TriggerRelayout   Trigger = "relayout"
)

// resizeThreshold is the viewport delta, in pixels, below which a resize
// trigger is ignored. Resize observers fire on sub-pixel noise.
const resizeThreshold = 1.0

// Request describes one render pass.
type Request struct {
	SnapshotID string
	Path       string
	Width      float64
	Height     float64
}

// FetchFunc loads the adapted tree for a path. Called during Computing;
// implementations typically wrap the tree adapter over a source or store.
type FetchFunc func(ctx context.Context, snapshotID, path string) (*snapshot.Node, error)

// Event is emitted on every state transition for status readouts.
type Event struct {
	State    State
	Trigger  Trigger
	Path     string
	CacheHit bool
}

// Option configures an orchestrator.
type Option func(*Orchestrator)

// WithLayoutOptions sets the layout options used for every computation.
func WithLayoutOptions(opts layout.Options) Option {
	return func(o *Orchestrator) { o.layoutOpts = opts }
}

// WithLockProbe suppresses recomputation while probe reports the navigation
// controller is locked on an outstanding fetch.
func WithLockProbe(probe func() bool) Option {
	return func(o *Orchestrator) { o.locked = probe }
}

// WithPathProbe enables the staleness check: a fetch whose path no longer
// matches probe() at resolution time is discarded.
func WithPathProbe(probe func() string) Option {
	return func(o *Orchestrator) { o.currentPath = probe }
}

// WithObserver registers a callback for state transition events.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// Orchestrator drives the render lifecycle. It owns the single live
// renderer and is the only writer of the layout cache.
//
// Not safe for concurrent use: the host event loop serializes calls, and
// renders are strictly sequential per instance.
type Orchestrator struct {
	cache      *layout.Cache
	fetch      FetchFunc
	layoutOpts layout.Options

	locked      func() bool
	currentPath func() string
	observe     func(Event)

	slot  Slot
	state State
}

// NewOrchestrator creates an orchestrator in the Idle state.
func NewOrchestrator(cache *layout.Cache, fetch FetchFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache: cache,
		fetch: fetch,
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State { return o.state }

// Renderer returns the live renderer, or nil before the first render.
func (o *Orchestrator) Renderer() *Renderer { return o.slot.Current() }

// CacheLen reports the number of live cache entries for status readouts.
func (o *Orchestrator) CacheLen() int { return o.cache.Len() }

// Request runs one render pass for the given trigger. While navigation is
// locked the transition to Computing is suppressed and the live renderer is
// returned unchanged. Resize triggers within a pixel of the current
// viewport are ignored for the same reason.
//
// On fetch failure the previous renderer stays attached so the last good
// render remains visible.
func (o *Orchestrator) Request(ctx context.Context, trigger Trigger, req Request) (*Renderer, error) {
	if o.locked != nil && o.locked() {
		return o.slot.Current(), nil
	}
	if trigger == TriggerResize && o.resizeBelowThreshold(req) {
		return o.slot.Current(), nil
	}
	if err := vorerrors.ValidateViewport(req.Width, req.Height); err != nil {
		return o.slot.Current(), err
	}

	o.transition(StateComputing, trigger, req.Path, false)

	root, err := o.fetch(ctx, req.SnapshotID, req.Path)
	if err != nil {
		o.recover(trigger, req.Path)
		return o.slot.Current(), err
	}

	// A fetch that resolves after the user navigated away is stale; its
	// result is discarded and the previous render stays up.
	if o.currentPath != nil && o.currentPath() != req.Path {
		o.recover(trigger, req.Path)
		return o.slot.Current(), nil
	}

	key := layout.NewKey(req.SnapshotID, req.Path, req.Width, req.Height)
	lvl, hit := o.lookup(key, trigger)
	if !hit {
		lvl = layout.Compute(root, key, o.layoutOpts)
		o.cache.Put(key, lvl)
	}

	o.transition(StateRendering, trigger, req.Path, hit)

	next := NewRenderer(lvl)
	o.carrySelection(next)
	o.slot.Swap(next)

	o.transition(StateReady, trigger, req.Path, hit)
	return next, nil
}

// Dispose releases the live renderer and returns to Idle. Called when the
// host view unmounts.
func (o *Orchestrator) Dispose() {
	o.slot.Release()
	o.transition(StateIdle, "", "", false)
}

// lookup consults the cache. Data changes and explicit re-layouts always
// recompute; path, resize, and theme changes reuse a cached level.
func (o *Orchestrator) lookup(key layout.Key, trigger Trigger) (*layout.Level, bool) {
	if trigger == TriggerDataChange || trigger == TriggerRelayout {
		return nil, false
	}
	if lvl := o.cache.Get(key); lvl != nil {
		return lvl, true
	}
	return nil, false
}

// resizeBelowThreshold reports whether req's viewport is within a pixel of
// the live renderer's in both axes.
func (o *Orchestrator) resizeBelowThreshold(req Request) bool {
	current := o.slot.Current()
	if current == nil || current.Level() == nil {
		return false
	}
	key := current.Level().Key
	if key.SnapshotID != req.SnapshotID || key.Path != req.Path {
		return false
	}
	return math.Abs(float64(key.Width)-req.Width) < resizeThreshold &&
		math.Abs(float64(key.Height)-req.Height) < resizeThreshold
}

// carrySelection moves a pinned selection onto the next renderer when its
// cell still exists. Unpinned selections end with the render pass.
func (o *Orchestrator) carrySelection(next *Renderer) {
	prev := o.slot.Current()
	if prev == nil {
		return
	}
	if sel := prev.Selection(); sel != nil && sel.Pinned && sel.Node != nil {
		next.Select(sel.Node.Path, true)
	}
}

// recover returns to the state that reflects what is on screen after a
// failed or discarded pass.
func (o *Orchestrator) recover(trigger Trigger, path string) {
	if o.slot.Current() != nil {
		o.transition(StateReady, trigger, path, false)
	} else {
		o.transition(StateIdle, trigger, path, false)
	}
}

func (o *Orchestrator) transition(next State, trigger Trigger, path string, cacheHit bool) {
	o.state = next
	if o.observe != nil {
		o.observe(Event{State: next, Trigger: trigger, Path: path, CacheHit: cacheHit})
	}
}
