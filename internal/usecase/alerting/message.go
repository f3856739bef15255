package alerting

import (
	"fmt"
	"strings"
	"time"

	"adtraffic/internal/domain/qa"
	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/format"
	"adtraffic/internal/ports"
)

// FormatQAFailure lists every blocking result of one ticket.
func FormatQAFailure(ticket trafficking.Ticket, campaign trafficking.Campaign, results []qa.Result) ports.AlertMessage {
	failures := qa.Failures(results)

	tbl := format.NewTable(format.Markdown)
	tbl.Header("Platform", "Geo", "Check", "Verdict", "Detail")
	for _, r := range failures {
		tbl.Row(string(r.Platform), r.Geo, string(r.Check), string(r.Verdict), r.Detail)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s (campaign %s", ticket.ID, campaign.ID)
	if campaign.Name != "" {
		fmt.Fprintf(&b, ", %s", campaign.Name)
	}
	fmt.Fprintf(&b, ") has %d blocking QA result(s), verdict %s.\n", len(failures), qa.Aggregate(results))
	if ticket.Assignee != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", ticket.Assignee)
	}
	b.WriteString("\n")
	b.WriteString(tbl.String())

	return ports.AlertMessage{
		Title: fmt.Sprintf("QA failed: %s", ticket.ID),
		Text:  b.String(),
	}
}

// FormatSLABreaches renders the ranked groups, one table per assignee.
func FormatSLABreaches(groups []AssigneeGroup) ports.AlertMessage {
	total := 0
	for _, g := range groups {
		total += len(g.Breaches)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d ticket(s) past SLA across %d assignee(s).\n", total, len(groups))
	for _, g := range groups {
		fmt.Fprintf(&b, "\n**%s** (worst %s overdue)\n\n", g.Assignee, formatOverdue(g.Worst))

		tbl := format.NewTable(format.Markdown)
		tbl.Header("Ticket", "Stage", "Deadline", "Overdue")
		for _, br := range g.Breaches {
			tbl.Row(br.Ticket.ID, string(br.Ticket.Stage), br.Deadline.UTC().Format(time.RFC3339), formatOverdue(br.Overdue))
		}
		b.WriteString(tbl.String())
		b.WriteString("\n")
	}

	return ports.AlertMessage{
		Title: fmt.Sprintf("SLA breach: %d ticket(s)", total),
		Text:  strings.TrimRight(b.String(), "\n"),
	}
}

func FormatBlocked(ticket trafficking.Ticket, reason string) ports.AlertMessage {
	text := fmt.Sprintf("Ticket %s (campaign %s) was moved to %s.\nReason: %s", ticket.ID, ticket.CampaignID, trafficking.StageBlocked, reason)
	if ticket.Assignee != "" {
		text += "\nAssignee: " + ticket.Assignee
	}
	return ports.AlertMessage{
		Title: fmt.Sprintf("Ticket blocked: %s", ticket.ID),
		Text:  text,
	}
}

// formatOverdue rounds to the minute: "5h0m", "2d3h".
func formatOverdue(d time.Duration) string {
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
