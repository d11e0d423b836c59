// Package render turns computed levels into visual outputs and owns the
// render lifecycle.
//
// # Overview
//
// Three output sinks share one input, the [layout.Level]:
//
//   - [RenderSVG]: the map itself, polygons plus file bubbles
//   - [RenderJSON]: the level as structured data for web frontends
//   - [ToDOT]: the directory tree as a Graphviz diagram
//
// # Lifecycle
//
// Interactive hosts drive rendering through the [Orchestrator], a state
// machine (Idle, Computing, Rendering, Ready) that recomputes on named
// triggers: path change, data change, viewport resize beyond a pixel,
// theme change, or an explicit re-layout.
//
// At most one [Renderer] is alive at a time. The orchestrator's slot can
// only be replaced by swapping the new renderer in and disposing the old
// one, so two bubble simulations never fight over the same surface.
//
//	orc := render.NewOrchestrator(cache, computeFn)
//	lvl, err := orc.Request(ctx, render.TriggerPathChange, req)
//	svg := render.RenderSVG(lvl, render.WithLabels())
package render
