// Package report renders session and simulation results for the terminal.
package report

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/session"
	"github.com/deepteaching86-gif/deepreading/internal/simulate"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

const barWidth = 20

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// bar draws a progress bar of n out of total.
func bar(n, total int) string {
	if total <= 0 {
		return ""
	}
	filled := min(barWidth*n/total, barWidth)
	return barFilled.Render(strings.Repeat("█", filled)) +
		barEmpty.Render(strings.Repeat("░", barWidth-filled))
}

// Item renders an item as presented to the test taker.
func Item(it *session.PresentedItem) string {
	if it == nil {
		return hintStyle.Render("No item to present.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(it.ID), hintStyle.Render(fmt.Sprintf("stage %d · %s · %s", it.Stage, it.Panel, it.Domain)))
	if it.Passage != "" {
		b.WriteString(cardStyle.Render(it.Passage))
		b.WriteString("\n")
	}
	b.WriteString(it.Stem)
	b.WriteString("\n")
	for _, o := range it.Options {
		fmt.Fprintf(&b, "  • %s\n", o)
	}
	return b.String()
}

// Started renders the result of starting a session.
func Started(r *session.StartResult) string {
	lines := []string{
		titleStyle.Render("Session started"),
		field("Session", r.SessionID),
		field("User", r.UserID),
		field("Form", fmt.Sprint(r.FormID)),
		field("Length", fmt.Sprintf("%d items", r.TotalItems)),
		"",
		Item(r.FirstItem),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Verdict renders whether an answer was correct and where the test stands.
func Verdict(r *session.SubmitResult) string {
	verdict := incorrectStyle.Render("✗ Incorrect")
	if r.Correct {
		verdict = correctStyle.Render("✓ Correct")
	}
	lines := []string{
		verdict,
		field("Progress", fmt.Sprintf("%s %d/%d", bar(r.State.ItemsCompleted, r.TotalItems), r.State.ItemsCompleted, r.TotalItems)),
		field("Ability", fmt.Sprintf("θ = %.3f (SE %.3f)", r.Estimate.Theta, r.Estimate.SE)),
		field("Stage", fmt.Sprintf("%d · %s", r.State.Stage, r.State.Panel)),
	}
	if r.Transition != nil {
		lines = append(lines, highlightStyle.Render(fmt.Sprintf("→ moved to stage %d (%s)", r.Transition.ToStage, r.Transition.To)))
	}
	switch {
	case r.Completed():
		lines = append(lines, "", titleStyle.Render("Test complete. Finalize the session for the report."))
	case r.PoolExhausted:
		lines = append(lines, "", incorrectStyle.Render("No eligible items remain for this panel."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Submitted renders the outcome of one answer followed by the next item.
func Submitted(r *session.SubmitResult) string {
	if r.Completed() || r.PoolExhausted || r.NextItem == nil {
		return Verdict(r)
	}
	return lipgloss.JoinVertical(lipgloss.Left, Verdict(r), "", Item(r.NextItem))
}

// Status renders a session's progress.
func Status(r *session.StatusResult) string {
	lines := []string{
		titleStyle.Render("Session " + r.SessionID),
		field("User", r.UserID),
		field("Status", r.Status),
		field("Started", r.StartedAt.Local().Format("2006-01-02 15:04")),
		field("Progress", fmt.Sprintf("%s %d/%d", bar(r.State.ItemsCompleted, r.TotalItems), r.State.ItemsCompleted, r.TotalItems)),
		field("Stage", fmt.Sprintf("%d · %s", r.State.Stage, r.State.Panel)),
		field("Ability", fmt.Sprintf("θ = %.3f (SE %.3f)", r.Estimate.Theta, r.Estimate.SE)),
	}
	if r.NextItemID != "" {
		lines = append(lines, field("Current item", r.NextItemID))
	}
	if r.CompletedAt != nil {
		lines = append(lines, field("Completed", r.CompletedAt.Local().Format("2006-01-02 15:04")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Final renders the finalized test report.
func Final(r *session.FinalResult) string {
	lines := []string{
		titleStyle.Render("English proficiency report"),
		field("Level", fmt.Sprintf("%d / 10 · %s", r.ProficiencyLevel, r.Band)),
		field("Ability", fmt.Sprintf("θ = %.3f (SE %.3f)", r.Theta, r.SE)),
		field("Lexile", fmt.Sprintf("%dL", r.Lexile)),
		field("AR level", fmt.Sprintf("%.1f", r.ARLevel)),
		field("Accuracy", fmt.Sprintf("%d/%d (%.1f%%)", r.CorrectCount, r.TotalItems, r.Accuracy)),
	}
	if v := r.Vocabulary; v != nil {
		lines = append(lines, field("Vocabulary", fmt.Sprintf("%d word families (%s confidence)", v.Size, v.Confidence)))
	}

	if len(r.Domains) > 0 {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(border)).
			Headers("Domain", "Correct", "Total", "%")
		for _, d := range r.Domains {
			t.Row(d.Domain, fmt.Sprint(d.Correct), fmt.Sprint(d.Total), fmt.Sprintf("%.1f", d.Percent))
		}
		lines = append(lines, "", t.String())
	}

	if fb := r.Feedback; fb != nil {
		lines = append(lines, "", titleStyle.Render("Feedback"), fb.Summary)
		for _, s := range fb.Strengths {
			lines = append(lines, correctStyle.Render("+ ")+s)
		}
		for _, s := range fb.NextSteps {
			lines = append(lines, highlightStyle.Render("→ ")+s)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Simulation renders a simulation report.
func Simulation(r *simulate.Report) string {
	lines := []string{
		titleStyle.Render("Simulation"),
		field("Examinees", fmt.Sprint(r.Examinees)),
		field("Bias", fmt.Sprintf("%+.3f", r.Bias)),
		field("RMSE", fmt.Sprintf("%.3f", r.RMSE)),
		field("Mean SE", fmt.Sprintf("%.3f", r.MeanSE)),
		field("Mean length", fmt.Sprintf("%.1f items", r.MeanItems)),
		field("Max exposure", fmt.Sprintf("%.1f%% (%s)", r.MaxExposureRate*100, r.MaxExposureItem)),
		field("Unused items", fmt.Sprint(r.UnusedItems)),
		field("Pool exhausted", fmt.Sprint(r.ExhaustedCount)),
	}

	panels := make([]mst.Panel, 0, len(r.PanelCounts))
	for p := range r.PanelCounts {
		panels = append(panels, p)
	}
	slices.SortFunc(panels, func(a, b mst.Panel) int { return strings.Compare(string(a), string(b)) })

	pt := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("Final panel", "Examinees", "")
	for _, p := range panels {
		n := r.PanelCounts[p]
		pt.Row(string(p), fmt.Sprint(n), bar(n, r.Examinees))
	}

	levels := make([]int, 0, len(r.LevelCounts))
	for l := range r.LevelCounts {
		levels = append(levels, l)
	}
	slices.Sort(levels)

	lt := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("Level", "Examinees", "")
	for _, l := range levels {
		n := r.LevelCounts[l]
		lt.Row(fmt.Sprint(l), fmt.Sprint(n), bar(n, r.Examinees))
	}

	lines = append(lines, "", pt.String(), lt.String())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Items renders an item bank listing.
func Items(items []store.Item) string {
	if len(items) == 0 {
		return hintStyle.Render("No items found.")
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("ID", "Stage", "Panel", "Form", "Domain", "a", "b", "c", "Exposed", "Status")
	for _, it := range items {
		t.Row(it.ID, fmt.Sprint(it.Stage), it.Panel, fmt.Sprint(it.FormID), it.Domain,
			fmt.Sprintf("%.2f", it.Discrimination), fmt.Sprintf("%.2f", it.Difficulty), fmt.Sprintf("%.2f", it.Guessing),
			fmt.Sprint(it.ExposureCount), it.Status)
	}
	return t.String()
}

// PanelStat counts items and exposures in one stage panel.
type PanelStat struct {
	Stage     int
	Panel     string
	Items     int
	Exposures int
}

// ItemStats renders per-panel item counts.
func ItemStats(stats []PanelStat) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("Stage", "Panel", "Items", "Exposures")
	for _, s := range stats {
		t.Row(fmt.Sprint(s.Stage), s.Panel, fmt.Sprint(s.Items), fmt.Sprint(s.Exposures))
	}
	return t.String()
}

// PanelStats groups items by stage and panel.
func PanelStats(items []store.Item) []PanelStat {
	idx := map[[2]string]int{}
	var out []PanelStat
	for _, it := range items {
		k := [2]string{fmt.Sprint(it.Stage), it.Panel}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, PanelStat{Stage: it.Stage, Panel: it.Panel})
		}
		out[i].Items++
		out[i].Exposures += it.ExposureCount
	}
	slices.SortFunc(out, func(a, b PanelStat) int {
		if a.Stage != b.Stage {
			return a.Stage - b.Stage
		}
		return strings.Compare(a.Panel, b.Panel)
	})
	return out
}
