package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/format"
	"adtraffic/internal/ports"
	"adtraffic/internal/usecase/trafficking"
)

var (
	badgeBase  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle = lipgloss.NewStyle().Bold(true)

	outcomeBadges = map[trafficking.Outcome]lipgloss.Style{
		trafficking.OutcomeReadyToLaunch: badgeBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")),
		trafficking.OutcomeQA:            badgeBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
		trafficking.OutcomeBlocked:       badgeBase.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")),
		trafficking.OutcomeSkipped:       badgeBase.Foreground(lipgloss.Color("245")),
		trafficking.OutcomeSuperseded:    badgeBase.Foreground(lipgloss.Color("245")),
		trafficking.OutcomeError:         badgeBase.Foreground(lipgloss.Color("196")),
		trafficking.OutcomeCancelled:     badgeBase.Foreground(lipgloss.Color("245")),
	}
)

func parseMode(raw string) (format.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "ascii", "table":
		return format.ASCII, nil
	case "markdown", "md":
		return format.Markdown, nil
	default:
		return format.ASCII, fmt.Errorf("unsupported output format %q", raw)
	}
}

func outcomeBadge(o trafficking.Outcome) string {
	label := strings.ToUpper(strings.ReplaceAll(string(o), "_", " "))
	style, ok := outcomeBadges[o]
	if !ok {
		style = badgeBase
	}
	return style.Render(label)
}

func renderBatch(w io.Writer, batch trafficking.BatchResult, mode format.Mode) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("run"), dimStyle.Render(batch.RunID))
	for _, t := range batch.Tickets {
		line := fmt.Sprintf("%s %s (%s)", outcomeBadge(t.Outcome), t.TicketID, t.CampaignID)
		if t.ToStage != "" {
			line += fmt.Sprintf(" %s -> %s", t.FromStage, t.ToStage)
		}
		if t.Planned > 0 {
			line += fmt.Sprintf(" [%d/%d payloads]", len(t.Payloads), t.Planned)
		}
		switch {
		case t.Err != nil:
			line += " " + dimStyle.Render(t.Err.Error())
		case t.Reason != "":
			line += " " + dimStyle.Render(t.Reason)
		}
		if t.Alert != nil && !t.Alert.Delivered {
			line += " " + dimStyle.Render("(alert not delivered)")
		}
		b.WriteString(line + "\n")
	}

	tbl := format.NewTable(mode)
	tbl.Header("Outcome", "Tickets")
	tbl.AlignRight(2)
	for _, o := range trafficking.Outcomes() {
		if n := batch.Count(o); n > 0 {
			tbl.Row(string(o), n)
		}
	}
	tbl.Footer("Total", len(batch.Tickets))
	b.WriteString("\n" + tbl.String() + "\n")

	if batch.SLA != nil {
		fmt.Fprintf(&b, "\nSLA: %d open ticket(s), %d breach(es)\n", batch.SLA.Checked, len(batch.SLA.Breaches))
	}
	if batch.SLAErr != nil {
		fmt.Fprintf(&b, "\nSLA check failed: %v\n", batch.SLAErr)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderSLA(w io.Writer, res trafficking.SLAResult, mode format.Mode) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d open ticket(s), %d breach(es)\n", res.Checked, len(res.Breaches))

	if len(res.Breaches) > 0 {
		tbl := format.NewTable(mode)
		tbl.Header("Ticket", "Assignee", "Stage", "Deadline", "Overdue")
		for _, br := range res.Breaches {
			assignee := br.Ticket.Assignee
			if assignee == "" {
				assignee = "Unassigned"
			}
			tbl.Row(br.Ticket.ID, assignee, string(br.Ticket.Stage), br.Deadline.UTC().Format(time.RFC3339), br.Overdue.Round(time.Minute).String())
		}
		b.WriteString("\n" + tbl.String() + "\n")

		if res.Alert.Delivered {
			b.WriteString("\nalert delivered\n")
		} else if res.Alert.Err != nil {
			fmt.Fprintf(&b, "\nalert not delivered: %v\n", res.Alert.Err)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderTickets(w io.Writer, tickets []domaintrafficking.Ticket, mode format.Mode) error {
	tbl := format.NewTable(mode)
	tbl.Header("Ticket", "Campaign", "Request", "Stage", "Assignee", "Notes")
	for _, t := range tickets {
		tbl.Row(t.ID, t.CampaignID, t.RequestType.String(), string(t.Stage), t.Assignee, truncate(t.Notes, 60))
	}
	tbl.Footer("", "", "", "", "Total", len(tickets))
	_, err := io.WriteString(w, tbl.String()+"\n")
	return err
}

func renderQAChecks(w io.Writer, checks []ports.StoredQACheck, mode format.Mode) error {
	tbl := format.NewTable(mode)
	tbl.Header("Ticket", "Check", "Platform", "Geo", "Result", "Detail")
	for _, c := range checks {
		tbl.Row(c.TicketID, c.CheckName, c.Platform, c.Geo, c.Verdict, truncate(c.Detail, 60))
	}
	_, err := io.WriteString(w, tbl.String()+"\n")
	return err
}

func renderSummary(w io.Writer, sum trafficking.RunSummary, mode format.Mode) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("last run"), dimStyle.Render(sum.RunID))
	fmt.Fprintf(&b, "started %s, took %s\n", sum.StartedAt.UTC().Format(time.RFC3339), sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond))

	tbl := format.NewTable(mode)
	tbl.Header("Ticket", "Outcome", "Stage", "Verdict", "Payloads")
	for _, t := range sum.Tickets {
		payloads := ""
		if t.Planned > 0 {
			payloads = fmt.Sprintf("%d/%d", t.Payloads, t.Planned)
		}
		tbl.Row(t.TicketID, string(t.Outcome), t.Stage, t.Verdict, payloads)
	}
	b.WriteString("\n" + tbl.String() + "\n")
	if sum.SLABreaches > 0 {
		fmt.Fprintf(&b, "\nSLA breaches: %d\n", sum.SLABreaches)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
