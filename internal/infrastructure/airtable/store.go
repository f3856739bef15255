package airtable

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/ports"
)

const (
	tableTickets     = "tickets"
	tableCampaigns   = "campaigns"
	tableTitles      = "titles"
	tableBrands      = "brands"
	tableMarkets     = "markets"
	tableChannels    = "channels"
	tableAudiences   = "audiences"
	tableTicketTypes = "ticket_types"
	tableUsers       = "users"
	tableQAChecks    = "qa_checks"
)

// Store maps the Airtable base onto the record store ports. Airtable has no
// transactions, so callers pair it with ports.Sequential and rely on the QA
// log idempotency keys.
type Store struct {
	client *Client
}

var (
	_ ports.RecordStore   = (*Store)(nil)
	_ ports.RecordBrowser = (*Store)(nil)
)

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

func (s *Store) ListPendingTickets(ctx context.Context) ([]trafficking.Ticket, error) {
	return s.ListTickets(ctx, ports.TicketFilter{Stage: trafficking.StageTrafficking})
}

func (s *Store) ListOpenTickets(ctx context.Context) ([]trafficking.Ticket, error) {
	return s.listTickets(ctx, fmt.Sprintf("NOT({stage}=%s)", quote(string(trafficking.StageCompleted))))
}

func (s *Store) ListTickets(ctx context.Context, filter ports.TicketFilter) ([]trafficking.Ticket, error) {
	var clauses []string
	if filter.Stage != "" {
		clauses = append(clauses, fmt.Sprintf("{stage}=%s", quote(string(filter.Stage))))
	}
	if assignee := strings.TrimSpace(filter.Assignee); assignee != "" {
		clauses = append(clauses, fmt.Sprintf("{assignee}=%s", quote(assignee)))
	}

	formula := ""
	switch len(clauses) {
	case 0:
	case 1:
		formula = clauses[0]
	default:
		formula = "AND(" + strings.Join(clauses, ", ") + ")"
	}
	return s.listTickets(ctx, formula)
}

func (s *Store) listTickets(ctx context.Context, formula string) ([]trafficking.Ticket, error) {
	records, err := s.client.List(ctx, tableTickets, formula)
	if err != nil {
		return nil, errs.Wrap(err, "list tickets")
	}

	tickets := make([]trafficking.Ticket, 0, len(records))
	for _, rec := range records {
		ticket, err := mapTicket(rec)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

func (s *Store) GetCampaign(ctx context.Context, campaignID string) (trafficking.Campaign, error) {
	rec, err := s.client.Get(ctx, tableCampaigns, campaignID)
	if err != nil {
		if IsNotFound(err) {
			return trafficking.Campaign{}, fmt.Errorf("%w: %s", ports.ErrCampaignNotFound, campaignID)
		}
		return trafficking.Campaign{}, errs.Wrap(err, "get campaign")
	}

	campaign := mapCampaign(rec)

	// Linked records that no longer exist stay nil; the engine reports them.
	if campaign.TitleID != "" {
		title, err := s.client.Get(ctx, tableTitles, campaign.TitleID)
		switch {
		case err == nil:
			mapped := mapTitle(title)
			campaign.Title = &mapped
		case !IsNotFound(err):
			return trafficking.Campaign{}, errs.Wrap(err, "get campaign title")
		}
	}
	if campaign.MarketID != "" {
		market, err := s.client.Get(ctx, tableMarkets, campaign.MarketID)
		switch {
		case err == nil:
			mapped := mapMarket(market)
			campaign.Market = &mapped
		case !IsNotFound(err):
			return trafficking.Campaign{}, errs.Wrap(err, "get campaign market")
		}
	}
	if campaign.ChannelID != "" {
		channel, err := s.client.Get(ctx, tableChannels, campaign.ChannelID)
		switch {
		case err == nil:
			mapped := mapChannel(channel)
			campaign.Channel = &mapped
		case !IsNotFound(err):
			return trafficking.Campaign{}, errs.Wrap(err, "get campaign channel")
		}
	}
	return campaign, nil
}

func (s *Store) GetLookups(ctx context.Context) (trafficking.Lookups, error) {
	lookups := trafficking.Lookups{
		Brands:      map[string]trafficking.Brand{},
		Markets:     map[string]trafficking.Market{},
		Channels:    map[string]trafficking.Channel{},
		Audiences:   map[string]trafficking.Audience{},
		TicketTypes: map[string]trafficking.TicketType{},
		Users:       map[string]trafficking.User{},
	}

	load := func(table string, fn func(Record)) error {
		records, err := s.client.List(ctx, table, "")
		if err != nil {
			return errs.Wrapf(err, "list %s", table)
		}
		for _, rec := range records {
			fn(rec)
		}
		return nil
	}

	steps := []struct {
		table string
		fn    func(Record)
	}{
		{tableBrands, func(r Record) {
			lookups.Brands[r.ID] = trafficking.Brand{ID: r.ID, Code: str(r.Fields, "brand_code"), Name: str(r.Fields, "brand_name")}
		}},
		{tableMarkets, func(r Record) { lookups.Markets[r.ID] = mapMarket(r) }},
		{tableChannels, func(r Record) { lookups.Channels[r.ID] = mapChannel(r) }},
		{tableAudiences, func(r Record) {
			lookups.Audiences[r.ID] = trafficking.Audience{ID: r.ID, Code: str(r.Fields, "audience_code"), Name: str(r.Fields, "audience_name")}
		}},
		{tableTicketTypes, func(r Record) {
			lookups.TicketTypes[r.ID] = trafficking.TicketType{ID: r.ID, Name: str(r.Fields, "type_name")}
		}},
		{tableUsers, func(r Record) {
			lookups.Users[r.ID] = trafficking.User{ID: r.ID, Name: str(r.Fields, "name"), Email: str(r.Fields, "email")}
		}},
	}
	for _, step := range steps {
		if err := load(step.table, step.fn); err != nil {
			return trafficking.Lookups{}, err
		}
	}
	return lookups, nil
}

// UpdateTicketStage re-reads the record and refuses the write when the stage
// no longer matches from. Airtable has no conditional update, so a writer
// landing between the read and the PATCH can still slip through.
func (s *Store) UpdateTicketStage(ctx context.Context, ticketID string, from, to trafficking.Stage, reason string) error {
	if err := trafficking.ValidateTransition(from, to); err != nil {
		return errs.Wrapf(err, "ticket %s", ticketID)
	}
	rec, err := s.client.Get(ctx, tableTickets, ticketID)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %s", ports.ErrTicketNotFound, ticketID)
		}
		return errs.Wrap(err, "get ticket")
	}
	current, err := trafficking.ParseStage(str(rec.Fields, "stage"))
	if err != nil {
		return errs.Wrapf(err, "ticket %s", ticketID)
	}
	if current != from {
		return fmt.Errorf("%w: ticket %s is %s, expected %s", ports.ErrStageConflict, ticketID, current, from)
	}

	fields := map[string]any{"stage": string(to)}
	switch {
	case strings.TrimSpace(reason) != "":
		fields["notes"] = reason
	case to == trafficking.StageReadyToLaunch:
		fields["notes"] = ""
	}
	if _, err := s.client.Update(ctx, tableTickets, ticketID, fields); err != nil {
		return errs.Wrap(err, "update ticket stage")
	}
	return nil
}

// CreateQACheckRecord looks the idempotency key up before creating, so a
// rerun over unchanged tickets does not duplicate the log.
func (s *Store) CreateQACheckRecord(ctx context.Context, record ports.QACheckRecord) (bool, error) {
	if strings.TrimSpace(record.IdempotencyKey) == "" {
		return false, fmt.Errorf("idempotency key is required")
	}

	existing, err := s.client.List(ctx, tableQAChecks, fmt.Sprintf("{idempotency_key}=%s", quote(record.IdempotencyKey)))
	if err != nil {
		return false, errs.Wrap(err, "lookup qa check")
	}
	if len(existing) > 0 {
		return false, nil
	}

	fields := map[string]any{
		"ticket_id":       []string{record.TicketID},
		"ticket_ref":      record.TicketID,
		"idempotency_key": record.IdempotencyKey,
		"check_name":      record.CheckName,
		"payload_id":      record.PayloadID,
		"platform":        record.Platform,
		"geo":             record.Geo,
		"result":          record.Verdict,
		"check_details":   record.Detail,
	}
	if _, err := s.client.Create(ctx, tableQAChecks, fields); err != nil {
		return false, errs.Wrap(err, "create qa check")
	}
	return true, nil
}

func (s *Store) ListQAChecks(ctx context.Context, ticketID string) ([]ports.StoredQACheck, error) {
	records, err := s.client.List(ctx, tableQAChecks, fmt.Sprintf("{ticket_ref}=%s", quote(ticketID)))
	if err != nil {
		return nil, errs.Wrap(err, "list qa checks")
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedTime < records[j].CreatedTime })

	items := make([]ports.StoredQACheck, 0, len(records))
	for _, rec := range records {
		items = append(items, ports.StoredQACheck{
			QACheckRecord: ports.QACheckRecord{
				TicketID:       ticketID,
				IdempotencyKey: str(rec.Fields, "idempotency_key"),
				CheckName:      str(rec.Fields, "check_name"),
				PayloadID:      str(rec.Fields, "payload_id"),
				Platform:       str(rec.Fields, "platform"),
				Geo:            str(rec.Fields, "geo"),
				Verdict:        str(rec.Fields, "result"),
				Detail:         str(rec.Fields, "check_details"),
			},
			CreatedAt: rec.CreatedTime,
		})
	}
	return items, nil
}

func mapTicket(rec Record) (trafficking.Ticket, error) {
	stage, err := trafficking.ParseStage(str(rec.Fields, "stage"))
	if err != nil {
		return trafficking.Ticket{}, errs.Wrapf(err, "ticket %s", rec.ID)
	}
	ticket := trafficking.Ticket{
		ID:          rec.ID,
		CampaignID:  link(rec.Fields, "campaign_id"),
		RequestType: trafficking.ParseRequestType(str(rec.Fields, "request_type")),
		Stage:       stage,
		Assignee:    str(rec.Fields, "assignee"),
		SLAHours:    int(num(rec.Fields, "sla_hours")),
		Notes:       str(rec.Fields, "notes"),
	}
	if created := parseTime(rec.CreatedTime); created != nil {
		ticket.CreatedAt = *created
	}
	ticket.DueDate = parseTime(str(rec.Fields, "due_date"))
	return ticket, nil
}

func mapCampaign(rec Record) trafficking.Campaign {
	f := rec.Fields
	c := trafficking.Campaign{
		ID:          rec.ID,
		Name:        str(f, "campaign_name"),
		TitleID:     link(f, "title_id"),
		MarketID:    link(f, "market_id"),
		ChannelID:   link(f, "channel_id"),
		AudienceID:  link(f, "audience_id"),
		Objective:   str(f, "campaign_objective"),
		Budget:      num(f, "budget_usd"),
		Geos:        list(f, "targeting_geo"),
		LandingPage: str(f, "landing_page"),
		Sponsorship: boolean(f, "sponsorship"),
		Creative: trafficking.CreativeSpec{
			Width:           int(num(f, "creative_width")),
			Height:          int(num(f, "creative_height")),
			Format:          str(f, "creative_format"),
			DurationSeconds: int(num(f, "creative_duration_seconds")),
		},
	}
	if start := parseTime(str(f, "start_date")); start != nil {
		c.StartDate = *start
	}
	if end := parseTime(str(f, "end_date")); end != nil {
		c.EndDate = *end
	}
	return c
}

func mapTitle(rec Record) trafficking.Title {
	return trafficking.Title{
		ID:          rec.ID,
		Name:        str(rec.Fields, "title_name"),
		Slug:        str(rec.Fields, "title_slug"),
		BrandID:     link(rec.Fields, "brand_id"),
		ReleaseDate: parseTime(str(rec.Fields, "release_date")),
	}
}

func mapMarket(rec Record) trafficking.Market {
	return trafficking.Market{
		ID:   rec.ID,
		Code: str(rec.Fields, "market_code"),
		Name: str(rec.Fields, "market_name"),
		Geos: list(rec.Fields, "geos"),
	}
}

func mapChannel(rec Record) trafficking.Channel {
	return trafficking.Channel{
		ID:   rec.ID,
		Code: str(rec.Fields, "channel_code"),
		Name: str(rec.Fields, "channel_name"),
	}
}

// quote renders s as an Airtable formula string literal.
func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func str(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func num(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(f) {
			return f
		}
	}
	return 0
}

func boolean(fields map[string]any, key string) bool {
	v, _ := fields[key].(bool)
	return v
}

// link returns the first record id of a linked-record field.
func link(fields map[string]any, key string) string {
	return str(fields, key)
}

// list accepts a multiple-select array or a comma separated text field.
func list(fields map[string]any, key string) []string {
	var raw []string
	switch v := fields[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
