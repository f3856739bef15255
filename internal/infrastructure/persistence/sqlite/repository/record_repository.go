package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/infrastructure/fixtures"
	"adtraffic/internal/infrastructure/persistence/sqlite/model"
	"adtraffic/internal/ports"
)

const dateLayout = "2006-01-02"

// RecordRepository is the local sqlite record store. It serves the pipeline
// (ports.RecordStore) and the operator read side (ports.RecordBrowser).
type RecordRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ ports.RecordStore   = (*RecordRepository)(nil)
	_ ports.RecordBrowser = (*RecordRepository)(nil)
)

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db, now: time.Now}
}

func (r *RecordRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *RecordRepository) ListPendingTickets(ctx context.Context) ([]trafficking.Ticket, error) {
	return r.ListTickets(ctx, ports.TicketFilter{Stage: trafficking.StageTrafficking})
}

func (r *RecordRepository) ListOpenTickets(ctx context.Context) ([]trafficking.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Ticket
	if err := db.
		Where("stage <> ?", string(trafficking.StageCompleted)).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query open tickets")
	}
	return mapTickets(rows)
}

func (r *RecordRepository) ListTickets(ctx context.Context, filter ports.TicketFilter) ([]trafficking.Ticket, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Ticket{})
	if filter.Stage != "" {
		query = query.Where("stage = ?", string(filter.Stage))
	}
	if assignee := strings.TrimSpace(filter.Assignee); assignee != "" {
		query = query.Where("assignee = ?", assignee)
	}

	var rows []model.Ticket
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query tickets")
	}
	return mapTickets(rows)
}

func (r *RecordRepository) GetCampaign(ctx context.Context, campaignID string) (trafficking.Campaign, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return trafficking.Campaign{}, err
	}

	var row model.Campaign
	if err := db.Where("id = ?", campaignID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return trafficking.Campaign{}, fmt.Errorf("%w: %s", ports.ErrCampaignNotFound, campaignID)
		}
		return trafficking.Campaign{}, errs.Wrap(err, "query campaign")
	}

	campaign := mapCampaign(row)

	// Unresolved references stay nil; the engine reports them per campaign.
	if row.TitleID != "" {
		var title model.Title
		if err := db.Where("id = ?", row.TitleID).Take(&title).Error; err == nil {
			mapped := mapTitle(title)
			campaign.Title = &mapped
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return trafficking.Campaign{}, errs.Wrap(err, "query campaign title")
		}
	}
	if row.MarketID != "" {
		var market model.Market
		if err := db.Where("id = ?", row.MarketID).Take(&market).Error; err == nil {
			mapped := mapMarket(market)
			campaign.Market = &mapped
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return trafficking.Campaign{}, errs.Wrap(err, "query campaign market")
		}
	}
	if row.ChannelID != "" {
		var channel model.Channel
		if err := db.Where("id = ?", row.ChannelID).Take(&channel).Error; err == nil {
			campaign.Channel = &trafficking.Channel{ID: channel.ID, Code: channel.Code, Name: channel.Name}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return trafficking.Campaign{}, errs.Wrap(err, "query campaign channel")
		}
	}
	return campaign, nil
}

func (r *RecordRepository) GetLookups(ctx context.Context) (trafficking.Lookups, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return trafficking.Lookups{}, err
	}

	var (
		brands      []model.Brand
		markets     []model.Market
		channels    []model.Channel
		audiences   []model.Audience
		ticketTypes []model.TicketType
		users       []model.User
	)
	if err := db.Find(&brands).Error; err != nil {
		return trafficking.Lookups{}, errs.Wrap(err, "query brands")
	}
	if err := db.Find(&markets).Error; err != nil {
		return trafficking.Lookups{}, errs.Wrap(err, "query markets")
	}
	if err := db.Find(&channels).Error; err != nil {
		return trafficking.Lookups{}, errs.Wrap(err, "query channels")
	}
	if err := db.Find(&audiences).Error; err != nil {
		return trafficking.Lookups{}, errs.Wrap(err, "query audiences")
	}
	if err := db.Find(&ticketTypes).Error; err != nil {
		return trafficking.Lookups{}, errs.Wrap(err, "query ticket types")
	}
	if err := db.Find(&users).Error; err != nil {
		return trafficking.Lookups{}, errs.Wrap(err, "query users")
	}

	lookups := trafficking.Lookups{
		Brands:      make(map[string]trafficking.Brand, len(brands)),
		Markets:     make(map[string]trafficking.Market, len(markets)),
		Channels:    make(map[string]trafficking.Channel, len(channels)),
		Audiences:   make(map[string]trafficking.Audience, len(audiences)),
		TicketTypes: make(map[string]trafficking.TicketType, len(ticketTypes)),
		Users:       make(map[string]trafficking.User, len(users)),
	}
	for _, b := range brands {
		lookups.Brands[b.ID] = trafficking.Brand{ID: b.ID, Code: b.Code, Name: b.Name}
	}
	for _, m := range markets {
		lookups.Markets[m.ID] = mapMarket(m)
	}
	for _, c := range channels {
		lookups.Channels[c.ID] = trafficking.Channel{ID: c.ID, Code: c.Code, Name: c.Name}
	}
	for _, a := range audiences {
		lookups.Audiences[a.ID] = trafficking.Audience{ID: a.ID, Code: a.Code, Name: a.Name}
	}
	for _, tt := range ticketTypes {
		lookups.TicketTypes[tt.ID] = trafficking.TicketType{ID: tt.ID, Name: tt.Name}
	}
	for _, u := range users {
		lookups.Users[u.ID] = trafficking.User{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return lookups, nil
}

// UpdateTicketStage is a guarded write: the row only changes while its stage
// still equals from, so two writers racing on one ticket cannot both win.
func (r *RecordRepository) UpdateTicketStage(ctx context.Context, ticketID string, from, to trafficking.Stage, reason string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	if err := trafficking.ValidateTransition(from, to); err != nil {
		return errs.Wrapf(err, "ticket %s", ticketID)
	}

	updates := map[string]any{
		"stage":      string(to),
		"updated_at": r.now().UTC().Format(time.RFC3339Nano),
	}
	switch {
	case strings.TrimSpace(reason) != "":
		updates["notes"] = reason
	case to == trafficking.StageReadyToLaunch:
		updates["notes"] = ""
	}
	res := db.Model(&model.Ticket{}).
		Where("id = ? AND stage = ?", ticketID, string(from)).
		Updates(updates)
	if res.Error != nil {
		return errs.Wrap(res.Error, "update ticket stage")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var row model.Ticket
	if err := db.Select("id", "stage").Where("id = ?", ticketID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ports.ErrTicketNotFound, ticketID)
		}
		return errs.Wrap(err, "query ticket")
	}
	return fmt.Errorf("%w: ticket %s is %s, expected %s", ports.ErrStageConflict, ticketID, row.Stage, from)
}

func (r *RecordRepository) CreateQACheckRecord(ctx context.Context, record ports.QACheckRecord) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(record.IdempotencyKey) == "" {
		return false, errors.New("idempotency key is required")
	}

	row := model.QACheck{
		TicketID:       record.TicketID,
		IdempotencyKey: record.IdempotencyKey,
		CheckName:      record.CheckName,
		PayloadID:      record.PayloadID,
		Platform:       record.Platform,
		Geo:            record.Geo,
		Verdict:        record.Verdict,
		Detail:         record.Detail,
		CreatedAt:      r.now().UTC().Format(time.RFC3339Nano),
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert qa check")
	}
	return result.RowsAffected > 0, nil
}

func (r *RecordRepository) ListQAChecks(ctx context.Context, ticketID string) ([]ports.StoredQACheck, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.QACheck
	if err := db.
		Where("ticket_id = ?", ticketID).
		Order("qa_check_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query qa checks")
	}

	items := make([]ports.StoredQACheck, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.StoredQACheck{
			QACheckRecord: ports.QACheckRecord{
				TicketID:       row.TicketID,
				IdempotencyKey: row.IdempotencyKey,
				CheckName:      row.CheckName,
				PayloadID:      row.PayloadID,
				Platform:       row.Platform,
				Geo:            row.Geo,
				Verdict:        row.Verdict,
				Detail:         row.Detail,
			},
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

// Seed upserts a dataset in one transaction. Existing rows with the same id
// are overwritten, so seeding the same file twice is harmless.
func (r *RecordRepository) Seed(ctx context.Context, ds fixtures.Dataset) error {
	if ports.TxFromContext(ctx) == nil {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.Seed(ports.WithTxContext(ctx, tx), ds)
		})
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	upsert := func(row any) *gorm.DB {
		return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row)
	}
	now := r.now().UTC().Format(time.RFC3339Nano)

	for _, b := range ds.Brands {
		if err := upsert(&model.Brand{ID: b.ID, Code: b.Code, Name: b.Name}).Error; err != nil {
			return errs.Wrapf(err, "seed brand %s", b.ID)
		}
	}
	for _, m := range ds.Markets {
		if err := upsert(&model.Market{ID: m.ID, Code: m.Code, Name: m.Name, Geos: joinList(m.Geos)}).Error; err != nil {
			return errs.Wrapf(err, "seed market %s", m.ID)
		}
	}
	for _, c := range ds.Channels {
		if err := upsert(&model.Channel{ID: c.ID, Code: c.Code, Name: c.Name}).Error; err != nil {
			return errs.Wrapf(err, "seed channel %s", c.ID)
		}
	}
	for _, a := range ds.Audiences {
		if err := upsert(&model.Audience{ID: a.ID, Code: a.Code, Name: a.Name}).Error; err != nil {
			return errs.Wrapf(err, "seed audience %s", a.ID)
		}
	}
	for _, tt := range ds.TicketTypes {
		if err := upsert(&model.TicketType{ID: tt.ID, Name: tt.Name}).Error; err != nil {
			return errs.Wrapf(err, "seed ticket type %s", tt.ID)
		}
	}
	for _, u := range ds.Users {
		if err := upsert(&model.User{ID: u.ID, Name: u.Name, Email: u.Email}).Error; err != nil {
			return errs.Wrapf(err, "seed user %s", u.ID)
		}
	}
	for _, t := range ds.Titles {
		row := model.Title{ID: t.ID, Name: t.Name, Slug: t.Slug, BrandID: t.BrandID}
		if t.ReleaseDate != nil {
			release := t.ReleaseDate.UTC().Format(dateLayout)
			row.ReleaseDate = &release
		}
		if err := upsert(&row).Error; err != nil {
			return errs.Wrapf(err, "seed title %s", t.ID)
		}
	}
	for _, c := range ds.Campaigns {
		row := model.Campaign{
			ID:               c.ID,
			Name:             c.Name,
			TitleID:          c.TitleID,
			MarketID:         c.MarketID,
			ChannelID:        c.ChannelID,
			AudienceID:       c.AudienceID,
			Objective:        c.Objective,
			BudgetUSD:        c.Budget,
			StartDate:        formatDate(c.StartDate),
			EndDate:          formatDate(c.EndDate),
			Geos:             joinList(c.Geos),
			LandingPage:      c.LandingPage,
			CreativeWidth:    c.Creative.Width,
			CreativeHeight:   c.Creative.Height,
			CreativeFormat:   c.Creative.Format,
			CreativeDuration: c.Creative.DurationSeconds,
			Sponsorship:      c.Sponsorship,
		}
		if err := upsert(&row).Error; err != nil {
			return errs.Wrapf(err, "seed campaign %s", c.ID)
		}
	}
	for _, t := range ds.Tickets {
		row := model.Ticket{
			ID:          t.ID,
			CampaignID:  t.CampaignID,
			RequestType: t.RequestType.String(),
			Stage:       string(t.Stage),
			Assignee:    t.Assignee,
			SLAHours:    t.SLAHours,
			Notes:       t.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if row.Stage == "" {
			row.Stage = string(trafficking.StageTrafficking)
		}
		if !t.CreatedAt.IsZero() {
			row.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		if t.DueDate != nil {
			due := t.DueDate.UTC().Format(time.RFC3339Nano)
			row.DueDate = &due
		}
		if err := upsert(&row).Error; err != nil {
			return errs.Wrapf(err, "seed ticket %s", t.ID)
		}
	}
	return nil
}

func mapTickets(rows []model.Ticket) ([]trafficking.Ticket, error) {
	items := make([]trafficking.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket, err := mapTicket(row)
		if err != nil {
			return nil, err
		}
		items = append(items, ticket)
	}
	return items, nil
}

func mapTicket(row model.Ticket) (trafficking.Ticket, error) {
	stage, err := trafficking.ParseStage(row.Stage)
	if err != nil {
		return trafficking.Ticket{}, errs.Wrapf(err, "ticket %s", row.ID)
	}

	ticket := trafficking.Ticket{
		ID:          row.ID,
		CampaignID:  row.CampaignID,
		RequestType: trafficking.ParseRequestType(row.RequestType),
		Stage:       stage,
		Assignee:    row.Assignee,
		SLAHours:    row.SLAHours,
		Notes:       row.Notes,
	}
	if created, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		ticket.CreatedAt = created.UTC()
	}
	if row.DueDate != nil {
		if due, err := time.Parse(time.RFC3339Nano, *row.DueDate); err == nil {
			due = due.UTC()
			ticket.DueDate = &due
		}
	}
	return ticket, nil
}

func mapCampaign(row model.Campaign) trafficking.Campaign {
	c := trafficking.Campaign{
		ID:          row.ID,
		Name:        row.Name,
		TitleID:     row.TitleID,
		MarketID:    row.MarketID,
		ChannelID:   row.ChannelID,
		AudienceID:  row.AudienceID,
		Objective:   row.Objective,
		Budget:      row.BudgetUSD,
		Geos:        splitList(row.Geos),
		LandingPage: row.LandingPage,
		Sponsorship: row.Sponsorship,
		Creative: trafficking.CreativeSpec{
			Width:           row.CreativeWidth,
			Height:          row.CreativeHeight,
			Format:          row.CreativeFormat,
			DurationSeconds: row.CreativeDuration,
		},
	}
	if start, err := time.Parse(dateLayout, row.StartDate); err == nil {
		c.StartDate = start
	}
	if end, err := time.Parse(dateLayout, row.EndDate); err == nil {
		c.EndDate = end
	}
	return c
}

func mapTitle(row model.Title) trafficking.Title {
	t := trafficking.Title{ID: row.ID, Name: row.Name, Slug: row.Slug, BrandID: row.BrandID}
	if row.ReleaseDate != nil {
		if release, err := time.Parse(dateLayout, *row.ReleaseDate); err == nil {
			t.ReleaseDate = &release
		}
	}
	return t
}

func mapMarket(row model.Market) trafficking.Market {
	return trafficking.Market{ID: row.ID, Code: row.Code, Name: row.Name, Geos: splitList(row.Geos)}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func joinList(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ",")
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
