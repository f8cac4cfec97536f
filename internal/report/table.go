package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/statecore/internal/engines"
	"github.com/danielpatrickdp/statecore/internal/journal"
)

// Catppuccin Mocha subset.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

// tailSteps is how many trailing passes the run table shows.
const tailSteps = 10

// #region styles
type styles struct {
	title, header, label, value, ok, warn, bad, hot, dim lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Foreground(colorBlue).Bold(true),
		header: r.NewStyle().Foreground(colorBlue).Bold(true),
		label:  r.NewStyle().Foreground(colorOverlay1),
		value:  r.NewStyle().Foreground(colorText),
		ok:     r.NewStyle().Foreground(colorGreen),
		warn:   r.NewStyle().Foreground(colorYellow),
		bad:    r.NewStyle().Foreground(colorRed),
		hot:    r.NewStyle().Foreground(colorPeach),
		dim:    r.NewStyle().Foreground(colorOverlay1),
	}
}

func (s styles) outcome(o string) string {
	switch o {
	case "converged":
		return s.ok.Render(o)
	case "budget_exhausted":
		return s.warn.Render(o)
	case "aborted", "no_units":
		return s.bad.Render(o)
	default:
		return s.value.Render(o)
	}
}

func (s styles) num(layout string, x *float64) string {
	if x == nil {
		return s.dim.Render("-")
	}
	return s.value.Render(fmt.Sprintf(layout, *x))
}

func (s styles) health(h *float64) string {
	if h == nil {
		return s.dim.Render("-")
	}
	text := fmt.Sprintf("%.2f", *h)
	switch {
	case *h >= 0.8:
		return s.ok.Render(text)
	case *h >= 0.5:
		return s.warn.Render(text)
	default:
		return s.bad.Render(text)
	}
}

func (s styles) flag(b bool) string {
	if b {
		return s.hot.Render("yes")
	}
	return s.dim.Render("no")
}

// #endregion styles

// #region layout
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// grid writes a header row, a rule and the rows with columns padded to the
// widest rendered cell.
func grid(w io.Writer, st styles, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = padRight(c, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	hdr := make([]string, len(headers))
	rule := make([]string, len(headers))
	for i, h := range headers {
		hdr[i] = st.header.Render(h)
		rule[i] = st.dim.Render(strings.Repeat("─", widths[i]))
	}
	var b strings.Builder
	b.WriteString(line(hdr) + "\n")
	b.WriteString(line(rule) + "\n")
	for _, row := range rows {
		b.WriteString(line(row) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// fields writes aligned label/value pairs.
func fields(w io.Writer, st styles, pairs [][2]string) error {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(st.label.Render(padRight(p[0], width)) + "  " + p[1] + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion layout

// #region run-table

// RunTable renders a run summary followed by its trailing passes.
func RunTable(w io.Writer, v RunView) error {
	st := newStyles(w)
	title := "run " + v.RunID
	if v.Label != "" {
		title += " (" + v.Label + ")"
	}
	if _, err := fmt.Fprintln(w, st.title.Render(title)); err != nil {
		return err
	}

	pairs := [][2]string{
		{"outcome", st.outcome(v.Outcome)},
		{"steps", st.value.Render(fmt.Sprint(v.Steps))},
		{"elapsed", st.value.Render(v.Elapsed.String())},
		{"energy", st.num("%.6f", v.FinalEnergy)},
		{"risk", st.num("%.4f", v.FinalRisk)},
		{"health", st.health(v.Health)},
		{"stabilize", st.flag(v.NeedsStabilization)},
		{"conflicts", st.value.Render(fmt.Sprint(v.Conflicts))},
	}
	if v.FailedUnit != "" {
		pairs = append(pairs, [2]string{"failed unit", st.bad.Render(v.FailedUnit)})
	}
	if v.Error != "" {
		pairs = append(pairs, [2]string{"error", st.bad.Render(v.Error)})
	}
	if err := fields(w, st, pairs); err != nil {
		return err
	}

	for _, rec := range v.Recommendations {
		if _, err := fmt.Fprintln(w, st.warn.Render("  • "+rec)); err != nil {
			return err
		}
	}
	if len(v.History) == 0 {
		return nil
	}

	history := v.History
	if len(history) > tailSteps {
		if _, err := fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("\n… %d earlier passes", len(history)-tailSteps))); err != nil {
			return err
		}
		history = history[len(history)-tailSteps:]
	} else if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	rows := make([][]string, len(history))
	for i, s := range history {
		rows[i] = []string{
			fmt.Sprint(s.Step),
			st.num("%.6f", s.Energy),
			st.num("%.4f", s.Risk),
			st.num("%.3e", s.EnergyDelta),
			st.num("%.3e", s.VectorDelta),
		}
	}
	return grid(w, st, []string{"STEP", "ENERGY", "RISK", "ΔENERGY", "ΔVECTOR"}, rows)
}

// #endregion run-table

// #region journal-tables

// RunsTable renders journalled runs, one per row.
func RunsTable(w io.Writer, runs []journal.RunSummary) error {
	st := newStyles(w)
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, st.dim.Render("no runs recorded"))
		return err
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			shortID(r.RunID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			st.outcome(r.Outcome),
			fmt.Sprint(r.Steps),
			fmt.Sprintf("%.4f", r.FinalEnergy),
			st.health(r.Health),
			r.Label,
		}
	}
	return grid(w, st, []string{"RUN", "STARTED", "OUTCOME", "STEPS", "ENERGY", "HEALTH", "LABEL"}, rows)
}

// RunDetailTable renders one journalled run and its health log.
func RunDetailTable(w io.Writer, d journal.RunDetail) error {
	st := newStyles(w)
	if _, err := fmt.Fprintln(w, st.title.Render("run "+d.RunID)); err != nil {
		return err
	}
	pairs := [][2]string{
		{"label", st.value.Render(d.Label)},
		{"started", st.value.Render(d.StartedAt.Local().Format("2006-01-02 15:04:05"))},
		{"outcome", st.outcome(d.Outcome)},
		{"steps", st.value.Render(fmt.Sprint(d.Steps))},
		{"elapsed", st.value.Render(d.Elapsed.String())},
		{"energy", st.value.Render(fmt.Sprintf("%.6f", d.FinalEnergy))},
		{"risk", st.value.Render(fmt.Sprintf("%.4f", d.FinalRisk))},
		{"health", st.health(d.Health)},
		{"stabilize", st.flag(d.NeedsStabilization)},
	}
	if d.FailedUnit != "" {
		pairs = append(pairs, [2]string{"failed unit", st.bad.Render(d.FailedUnit)})
	}
	if d.Error != "" {
		pairs = append(pairs, [2]string{"error", st.bad.Render(d.Error)})
	}
	if err := fields(w, st, pairs); err != nil {
		return err
	}
	if len(d.HealthLog) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	rows := make([][]string, len(d.HealthLog))
	for i, e := range d.HealthLog {
		conflicts, errs, stab := st.dim.Render("-"), st.dim.Render("-"), st.dim.Render("-")
		if e.Conflicts != nil {
			conflicts = fmt.Sprint(*e.Conflicts)
		}
		if e.Errors != nil {
			errs = fmt.Sprint(*e.Errors)
		}
		if e.NeedsStabilization != nil {
			stab = st.flag(*e.NeedsStabilization)
		}
		rows[i] = []string{
			fmt.Sprint(e.Step),
			fmt.Sprintf("%.6f", e.Energy),
			fmt.Sprintf("%.3e", e.EnergyDelta),
			st.health(e.Overall),
			conflicts,
			errs,
			stab,
		}
	}
	return grid(w, st, []string{"STEP", "ENERGY", "ΔENERGY", "HEALTH", "CONFLICTS", "ERRORS", "STABILIZE"}, rows)
}

// #endregion journal-tables

// #region resolution-table

// ResolutionTable renders the engine implementation chosen for each role.
func ResolutionTable(w io.Writer, choices []engines.Choice) error {
	st := newStyles(w)
	rows := make([][]string, len(choices))
	for i, c := range choices {
		impl := st.value.Render(c.Impl)
		if strings.HasPrefix(c.Impl, "remote:") {
			impl = st.hot.Render(c.Impl)
		}
		rows[i] = []string{string(c.Role), impl, st.dim.Render(c.Reason)}
	}
	return grid(w, st, []string{"ROLE", "IMPLEMENTATION", "REASON"}, rows)
}

// #endregion resolution-table
