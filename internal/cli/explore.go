package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	vorerrors "github.com/vormap/vormap/pkg/errors"
	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/nav"
	"github.com/vormap/vormap/pkg/pipeline"
	"github.com/vormap/vormap/pkg/render"
	"github.com/vormap/vormap/pkg/session"
	"github.com/vormap/vormap/pkg/snapshot"
)

// List styles
var (
	listSelectedStyle = StyleHighlight.Bold(true)
	listNormalStyle   = StyleValue
	listDimStyle      = StyleDim
)

// exploreCommand creates the interactive terminal explorer.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		snapshotID string
		localRoot  string
		resume     bool
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Explore a snapshot interactively",
		Long: `Explore opens a terminal UI over one snapshot. Directories are listed
as cells sized by bytes on disk; drill into a directory with enter, go
back with backspace, and jump to any breadcrumb with its number key.
Type / to fuzzy-filter the current listing.

The explorer position is saved on quit and restored with --resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), snapshotID, localRoot, resume)
		},
	}

	cmd.Flags().StringVarP(&snapshotID, "snapshot", "s", "", "snapshot to explore (default: newest)")
	cmd.Flags().StringVar(&localRoot, "local", "", "scan a local directory instead of the backend")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume the previous explorer session")
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, snapshotID, localRoot string, resume bool) error {
	src, err := c.newSource(localRoot)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(src, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	sessions, err := session.NewCLIStore()
	if err != nil {
		c.Logger.Debug("session store unavailable", "err", err)
		sessions = nil
	}

	var prev *session.Session
	if resume && sessions != nil {
		prev, err = sessions.GetSession(ctx)
		if err != nil {
			printWarning("Could not resume session: %v", err)
		}
	}

	if snapshotID == "" {
		if prev != nil {
			snapshotID = prev.SnapshotID
		} else {
			descs, err := src.Snapshots(ctx)
			if err != nil {
				return err
			}
			if len(descs) == 0 {
				return fmt.Errorf("no snapshots available")
			}
			snapshotID = descs[0].ID
		}
	}

	ctrl := nav.NewController("/")
	if prev != nil && prev.SnapshotID == snapshotID {
		replaySession(ctrl, prev)
	}

	theme := c.cfg.Render.Theme
	if prev != nil && prev.Theme != "" {
		theme = prev.Theme
	}

	fetch := func(ctx context.Context, snapshotID, path string) (*snapshot.Node, error) {
		tree, _, err := runner.Fetch(ctx, pipeline.Options{
			SnapshotID: snapshotID,
			Path:       path,
			Logger:     c.Logger,
		})
		return tree, err
	}

	orch := render.NewOrchestrator(layout.NewCache(0), fetch,
		render.WithLayoutOptions(layout.Options{}),
		render.WithLockProbe(ctrl.Locked),
		render.WithPathProbe(ctrl.Current),
		render.WithObserver(func(ev render.Event) {
			c.Logger.Debug("render state",
				"state", ev.State, "trigger", ev.Trigger,
				"path", ev.Path, "cache_hit", ev.CacheHit)
		}),
	)
	defer orch.Dispose()

	m := exploreModel{
		ctx:        ctx,
		runner:     runner,
		nav:        ctrl,
		orch:       orch,
		snapshotID: snapshotID,
		theme:      theme,
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := final.(exploreModel); ok && sessions != nil {
		sess := session.New(snapshotID, ctrl.Current(), historyOf(ctrl), session.DefaultTTL)
		sess.Theme = fm.theme
		if err := sessions.SaveSession(context.Background(), sess); err != nil {
			c.Logger.Debug("save session", "err", err)
		}
	}
	return nil
}

// replaySession walks the controller back to a saved position. Replay
// stops silently at the first path the snapshot no longer contains.
func replaySession(ctrl *nav.Controller, sess *session.Session) {
	for _, p := range sess.History {
		if p == ctrl.Current() {
			continue
		}
		if err := ctrl.DrillDown(p); err != nil {
			return
		}
		ctrl.Resolve(p)
	}
	if sess.Path != ctrl.Current() {
		if err := ctrl.DrillDown(sess.Path); err != nil {
			return
		}
		ctrl.Resolve(sess.Path)
	}
}

// historyOf derives the saved history from the breadcrumb trail: every
// clickable crumb is an ancestor the user can return to.
func historyOf(ctrl *nav.Controller) []string {
	var history []string
	for _, crumb := range ctrl.Breadcrumbs() {
		if crumb.Clickable {
			history = append(history, crumb.Path)
		}
	}
	return history
}

// =============================================================================
// ExploreModel - Interactive snapshot explorer
// =============================================================================

// Terminal cells approximate pixels for layout purposes. A character
// cell is roughly 8x16 px in common terminal fonts.
const (
	cellPxWidth  = 8.0
	cellPxHeight = 16.0

	// chromeRows is the vertical space taken by header and footer.
	chromeRows = 7
)

// tickInterval drives the bubble relaxation animation.
const tickInterval = 100 * time.Millisecond

type tickMsg time.Time

// fetchedMsg reports the outcome of a drill-down fetch.
type fetchedMsg struct {
	path string
	err  error
}

// exploreModel is the bubbletea model for the snapshot explorer.
type exploreModel struct {
	ctx    context.Context
	runner *pipeline.Runner
	nav    *nav.Controller
	orch   *render.Orchestrator

	snapshotID string
	theme      string

	width  float64 // nominal pixel viewport
	height float64
	rows   int
	ready  bool

	cursor    int
	offset    int
	filter    string
	filtering bool
	errMsg    string
}

func (m exploreModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.rows = msg.Height
		m.width = float64(msg.Width) * cellPxWidth
		m.height = float64(msg.Height-chromeRows) * cellPxHeight
		if m.height < cellPxHeight {
			m.height = cellPxHeight
		}
		if !m.ready {
			m.ready = true
			m.request(render.TriggerPathChange)
		} else {
			m.request(render.TriggerResize)
		}
		return m, nil

	case tickMsg:
		if r := m.orch.Renderer(); r != nil {
			r.Tick()
		}
		return m, tick()

	case fetchedMsg:
		current := m.nav.Resolve(msg.path)
		if msg.err != nil {
			m.nav.GoBack()
			m.errMsg = vorerrors.UserMessage(msg.err)
			return m, nil
		}
		if !current {
			// Resolved after the user moved on; drop the result.
			return m, nil
		}
		m.cursor, m.offset = 0, 0
		m.filter = ""
		m.request(render.TriggerPathChange)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m exploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.filter = ""
			m.cursor, m.offset = 0, 0
		case "enter":
			m.filtering = false
		case "backspace":
			if len(m.filter) > 0 {
				m.filter = m.filter[:len(m.filter)-1]
			}
		case "ctrl+c":
			return m, tea.Quit
		default:
			if len(msg.String()) == 1 {
				m.filter += msg.String()
				m.cursor, m.offset = 0, 0
			}
		}
		return m, nil
	}

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.syncSelection()
		}

	case "down", "j":
		if m.cursor < len(m.visibleChildren())-1 {
			m.cursor++
			m.syncSelection()
		}

	case "enter", "l":
		children := m.visibleChildren()
		if m.cursor >= len(children) {
			return m, nil
		}
		child := children[m.cursor]
		if !child.IsDir || child.Synthetic {
			m.errMsg = fmt.Sprintf("%s has no subdirectories", child.Name)
			return m, nil
		}
		if err := m.nav.DrillDown(child.Path); err != nil {
			m.errMsg = vorerrors.UserMessage(err)
			return m, nil
		}
		m.errMsg = ""
		return m, m.fetchCmd(child.Path)

	case "backspace", "esc", "h":
		if m.nav.GoBack() {
			m.cursor, m.offset = 0, 0
			m.filter = ""
			m.errMsg = ""
			m.request(render.TriggerPathChange)
		}

	case "/":
		m.filtering = true
		m.filter = ""

	case "p":
		children := m.visibleChildren()
		if r := m.orch.Renderer(); r != nil && m.cursor < len(children) {
			r.Select(children[m.cursor].Path, true)
		}

	case "r":
		m.request(render.TriggerRelayout)

	case "t":
		if m.theme == "light" {
			m.theme = "dark"
		} else {
			m.theme = "light"
		}
		m.request(render.TriggerTheme)

	default:
		if idx, err := strconv.Atoi(key); err == nil {
			m.jumpToBreadcrumb(idx)
		}
	}
	return m, nil
}

// request runs one orchestrator pass at the current position. Errors
// land in the status line; the previous render stays up.
func (m *exploreModel) request(trigger render.Trigger) {
	if !m.ready {
		return
	}
	_, err := m.orch.Request(m.ctx, trigger, render.Request{
		SnapshotID: m.snapshotID,
		Path:       m.nav.Current(),
		Width:      m.width,
		Height:     m.height,
	})
	if err != nil {
		m.errMsg = vorerrors.UserMessage(err)
	} else {
		m.errMsg = ""
	}
	m.syncSelection()
}

// fetchCmd resolves the drill-down fetch off the event loop so the UI
// stays responsive while the hierarchy loads.
func (m exploreModel) fetchCmd(path string) tea.Cmd {
	return func() tea.Msg {
		_, _, err := m.runner.Fetch(m.ctx, pipeline.Options{
			SnapshotID: m.snapshotID,
			Path:       path,
		})
		return fetchedMsg{path: path, err: err}
	}
}

// jumpToBreadcrumb navigates to the crumb at idx (1-based).
func (m *exploreModel) jumpToBreadcrumb(idx int) {
	crumbs := m.nav.Breadcrumbs()
	if idx < 1 || idx > len(crumbs) || !crumbs[idx-1].Clickable {
		return
	}
	if err := m.nav.NavigateToBreadcrumb(crumbs[idx-1].Path); err != nil {
		m.errMsg = vorerrors.UserMessage(err)
		return
	}
	m.cursor, m.offset = 0, 0
	m.filter = ""
	m.request(render.TriggerPathChange)
}

// syncSelection mirrors the cursor onto the renderer's selection.
func (m *exploreModel) syncSelection() {
	r := m.orch.Renderer()
	if r == nil {
		return
	}
	children := m.visibleChildren()
	if m.cursor < len(children) {
		r.Select(children[m.cursor].Path, false)
	}
}

// visibleChildren returns the current level's children, largest first,
// filtered by the fuzzy query when one is active.
func (m exploreModel) visibleChildren() []*snapshot.Node {
	r := m.orch.Renderer()
	if r == nil || r.Level() == nil || r.Level().Root == nil {
		return nil
	}
	children := append([]*snapshot.Node(nil), r.Level().Root.Children...)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Size > children[j].Size
	})
	if m.filter == "" {
		return children
	}

	names := make([]string, len(children))
	for i, ch := range children {
		names[i] = ch.Name
	}
	ranks := fuzzy.RankFindFold(m.filter, names)
	sort.Sort(ranks)

	matched := make([]*snapshot.Node, 0, len(ranks))
	for _, rank := range ranks {
		matched = append(matched, children[rank.OriginalIndex])
	}
	return matched
}

func (m exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("vormap"))
	b.WriteString(StyleDim.Render("  " + m.snapshotID))
	b.WriteString("\n")
	b.WriteString(m.breadcrumbLine())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	r := m.orch.Renderer()
	if r == nil || r.Level() == nil {
		b.WriteString(StyleDim.Render("  loading..."))
		b.WriteString("\n")
		return b.String()
	}

	children := m.visibleChildren()
	total := r.Level().Root.Size

	listHeight := m.rows - chromeRows
	if listHeight < 1 {
		listHeight = 1
	}
	offset := m.offset
	if m.cursor < offset {
		offset = m.cursor
	}
	if m.cursor >= offset+listHeight {
		offset = m.cursor - listHeight + 1
	}
	end := offset + listHeight
	if end > len(children) {
		end = len(children)
	}

	for i := offset; i < end; i++ {
		b.WriteString(m.childLine(children[i], total, i == m.cursor))
		b.WriteString("\n")
	}
	if len(children) == 0 {
		if m.filter != "" {
			b.WriteString(StyleDim.Render("  no matches"))
		} else {
			b.WriteString(StyleDim.Render("  empty directory"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.filtering {
		b.WriteString(StyleHighlight.Render("/" + m.filter))
		b.WriteString(StyleDim.Render("  (enter to apply, esc to clear)"))
	} else {
		b.WriteString(StyleDim.Render("↑/↓ move  ⏎ open  ⌫ back  / filter  p pin  r relayout  t theme  q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m exploreModel) breadcrumbLine() string {
	crumbs := m.nav.Breadcrumbs()
	parts := make([]string, len(crumbs))
	for i, crumb := range crumbs {
		label := crumb.Name
		if crumb.Clickable {
			parts[i] = StyleHighlight.Render(fmt.Sprintf("%d:%s", i+1, label))
		} else {
			parts[i] = StyleValue.Render(label)
		}
	}
	return strings.Join(parts, StyleDim.Render(" / "))
}

func (m exploreModel) statusLine() string {
	var parts []string
	parts = append(parts, StyleDim.Render(string(m.orch.State())))

	if r := m.orch.Renderer(); r != nil && r.Level() != nil {
		lvl := r.Level()
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d cells", len(lvl.Polygons))))
		if len(lvl.Bubbles) > 0 {
			parts = append(parts, StyleDim.Render(fmt.Sprintf("%d bubbles", len(lvl.Bubbles))))
		}
		if !lvl.Converged {
			parts = append(parts, StyleWarning.Render("approximate layout"))
		}
	}
	parts = append(parts, StyleDim.Render(fmt.Sprintf("%d cached", m.orch.CacheLen())))

	if m.errMsg != "" {
		parts = append(parts, StyleWarning.Render(m.errMsg))
	}
	return "  " + strings.Join(parts, StyleDim.Render("  ·  "))
}

// childLine formats one listing row: cursor, kind marker, name, size,
// and a bar showing the child's share of the directory.
func (m exploreModel) childLine(n *snapshot.Node, total int64, current bool) string {
	cursor := "  "
	if current {
		cursor = "▸ "
	}

	marker := "●"
	if n.IsDir && !n.Synthetic {
		marker = "▪"
	}

	name := n.Name
	if n.Synthetic {
		name = fmt.Sprintf("%s (%d files)", n.Name, len(n.Children))
	}

	share := 0.0
	if total > 0 {
		share = float64(n.Size) / float64(total)
	}
	bar := strings.Repeat("█", int(share*20+0.5))

	line := fmt.Sprintf("%s%s %-32s %10s  %-20s %4.0f%%",
		cursor, marker, name, humanize.Bytes(uint64(n.Size)), bar, share*100)

	switch {
	case current:
		return listSelectedStyle.Render(line)
	case n.Synthetic:
		return listDimStyle.Render(line)
	default:
		return listNormalStyle.Render(line)
	}
}
