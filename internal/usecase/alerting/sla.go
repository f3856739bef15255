package alerting

import (
	"sort"
	"strings"
	"time"

	"adtraffic/internal/domain/trafficking"
)

const unassigned = "Unassigned"

// Breach is an open ticket past its SLA deadline.
type Breach struct {
	Ticket   trafficking.Ticket
	Deadline time.Time
	Overdue  time.Duration
}

// AssigneeGroup is one assignee's breaches, worst first.
type AssigneeGroup struct {
	Assignee string
	Worst    time.Duration
	Breaches []Breach
}

// Deadline is the earlier of created+sla_hours and the due date. ok is false
// when the ticket carries neither.
func Deadline(t trafficking.Ticket) (deadline time.Time, ok bool) {
	if t.SLAHours > 0 && !t.CreatedAt.IsZero() {
		deadline, ok = t.CreatedAt.Add(time.Duration(t.SLAHours)*time.Hour), true
	}
	if t.DueDate != nil && (!ok || t.DueDate.Before(deadline)) {
		deadline, ok = *t.DueDate, true
	}
	return deadline, ok
}

// FindBreaches returns the tickets that are past their deadline at now.
// Completed tickets never breach.
func FindBreaches(tickets []trafficking.Ticket, now time.Time) []Breach {
	var out []Breach
	for _, t := range tickets {
		if t.Stage == trafficking.StageCompleted {
			continue
		}
		deadline, ok := Deadline(t)
		if !ok || !now.After(deadline) {
			continue
		}
		out = append(out, Breach{Ticket: t, Deadline: deadline, Overdue: now.Sub(deadline)})
	}
	return out
}

// RankBreaches groups breaches by assignee. Breaches within a group are
// ordered by overdue descending, then ticket id; groups by their worst breach,
// then assignee name.
func RankBreaches(breaches []Breach) []AssigneeGroup {
	index := map[string]int{}
	var groups []AssigneeGroup
	for _, b := range breaches {
		name := strings.TrimSpace(b.Ticket.Assignee)
		if name == "" {
			name = unassigned
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, AssigneeGroup{Assignee: name})
		}
		groups[i].Breaches = append(groups[i].Breaches, b)
	}

	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Breaches, func(a, b int) bool {
			if g.Breaches[a].Overdue != g.Breaches[b].Overdue {
				return g.Breaches[a].Overdue > g.Breaches[b].Overdue
			}
			return g.Breaches[a].Ticket.ID < g.Breaches[b].Ticket.ID
		})
		g.Worst = g.Breaches[0].Overdue
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Worst != groups[b].Worst {
			return groups[a].Worst > groups[b].Worst
		}
		return groups[a].Assignee < groups[b].Assignee
	})
	return groups
}
