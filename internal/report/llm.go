package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/deepteaching86-gif/deepreading/internal/llm"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

// LLMEvents renders a list of recorded LLM calls.
func LLMEvents(events []store.LLMEvent) string {
	if len(events) == 0 {
		return hintStyle.Render("No LLM events found.")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
	for _, e := range events {
		ok := correctStyle.Render("✓")
		if !e.Success {
			ok = incorrectStyle.Render("✗")
		}
		t.Row(fmt.Sprint(e.ID), e.Timestamp.Local().Format(timeLayout), e.Purpose, truncate(e.Model, 28),
			fmt.Sprint(e.InputTokens), fmt.Sprint(e.OutputTokens), fmt.Sprint(e.LatencyMs), ok)
	}
	return t.String()
}

// LLMEvent renders one call with its captured request and response bodies.
func LLMEvent(e *store.LLMEvent) string {
	lines := []string{
		field("ID", fmt.Sprint(e.ID)),
		field("Time", e.Timestamp.Local().Format(timeLayout)),
		field("Provider", e.Provider),
		field("Model", e.Model),
		field("Purpose", e.Purpose),
		field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)),
		field("Latency", fmt.Sprintf("%dms", e.LatencyMs)),
		field("Success", fmt.Sprint(e.Success)),
	}
	if e.ErrorMessage != "" {
		lines = append(lines, field("Error", incorrectStyle.Render(e.ErrorMessage)))
	}
	lines = append(lines, "", titleStyle.Render("Request"), body(e.RequestBody),
		titleStyle.Render("Response"), body(e.ResponseBody))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func body(s string) string {
	if s == "" {
		return cardStyle.Render(hintStyle.Render("(not captured)"))
	}
	return cardStyle.Render(s)
}

// LLMUsage renders token usage by purpose and estimated cost by model.
func LLMUsage(byPurpose, byModel []store.LLMUsage) string {
	if len(byPurpose) == 0 {
		return hintStyle.Render("No LLM usage recorded yet.")
	}

	pt := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("Purpose", "Calls", "Input", "Output", "Total", "Avg ms")
	var calls, in, out int
	for _, u := range byPurpose {
		pt.Row(u.Purpose, fmt.Sprint(u.Calls), fmt.Sprint(u.InputTokens), fmt.Sprint(u.OutputTokens),
			fmt.Sprint(u.InputTokens+u.OutputTokens), fmt.Sprint(u.AvgLatencyMs))
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	pt.Row("TOTAL", fmt.Sprint(calls), fmt.Sprint(in), fmt.Sprint(out), fmt.Sprint(in+out), "")

	sections := []string{titleStyle.Render("Usage by purpose"), pt.String()}
	if len(byModel) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	mt := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		Headers("Model", "Calls", "Input", "Output", "Cost")
	var total float64
	var unknown []string
	for _, u := range byModel {
		cost := "?"
		if c := llm.LookupCost(u.Model); c != nil {
			usd := c.Cost(u.InputTokens, u.OutputTokens)
			total += usd
			cost = formatCost(usd)
		} else {
			unknown = append(unknown, u.Model)
		}
		mt.Row(truncate(u.Model, 32), fmt.Sprint(u.Calls), fmt.Sprint(u.InputTokens), fmt.Sprint(u.OutputTokens), cost)
	}
	label := "TOTAL"
	if len(unknown) > 0 {
		label = "TOTAL (partial)"
	}
	mt.Row(label, "", "", "", formatCost(total))

	sections = append(sections, "", titleStyle.Render("Estimated cost (USD)"), mt.String())
	if len(unknown) > 0 {
		sections = append(sections, hintStyle.Render("Pricing unavailable for: "+strings.Join(unknown, ", ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
