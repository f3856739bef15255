// Package fixtures loads YAML datasets into domain records for seeding the
// local record store.
package fixtures

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
)

// Dataset is everything a local record store needs for a pipeline run.
type Dataset struct {
	Brands      []trafficking.Brand
	Markets     []trafficking.Market
	Channels    []trafficking.Channel
	Audiences   []trafficking.Audience
	TicketTypes []trafficking.TicketType
	Users       []trafficking.User
	Titles      []trafficking.Title
	Campaigns   []trafficking.Campaign
	Tickets     []trafficking.Ticket
}

type document struct {
	Brands      []trafficking.Brand      `yaml:"brands"`
	Markets     []marketDoc              `yaml:"markets"`
	Channels    []codedDoc               `yaml:"channels"`
	Audiences   []codedDoc               `yaml:"audiences"`
	TicketTypes []trafficking.TicketType `yaml:"ticket_types"`
	Users       []trafficking.User       `yaml:"users"`
	Titles      []titleDoc               `yaml:"titles"`
	Campaigns   []campaignDoc            `yaml:"campaigns"`
	Tickets     []ticketDoc              `yaml:"tickets"`
}

type codedDoc struct {
	ID   string `yaml:"id"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type marketDoc struct {
	ID   string   `yaml:"id"`
	Code string   `yaml:"code"`
	Name string   `yaml:"name"`
	Geos []string `yaml:"geos"`
}

type titleDoc struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	BrandID     string `yaml:"brand_id"`
	ReleaseDate string `yaml:"release_date"`
}

type creativeDoc struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	Format          string `yaml:"format"`
	DurationSeconds int    `yaml:"duration_seconds"`
}

type campaignDoc struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	TitleID     string      `yaml:"title_id"`
	MarketID    string      `yaml:"market_id"`
	ChannelID   string      `yaml:"channel_id"`
	AudienceID  string      `yaml:"audience_id"`
	Objective   string      `yaml:"objective"`
	Budget      float64     `yaml:"budget"`
	StartDate   string      `yaml:"start_date"`
	EndDate     string      `yaml:"end_date"`
	Geos        []string    `yaml:"geos"`
	LandingPage string      `yaml:"landing_page"`
	Sponsorship bool        `yaml:"sponsorship"`
	Creative    creativeDoc `yaml:"creative"`
}

type ticketDoc struct {
	ID          string `yaml:"id"`
	CampaignID  string `yaml:"campaign_id"`
	RequestType string `yaml:"request_type"`
	Stage       string `yaml:"stage"`
	Assignee    string `yaml:"assignee"`
	DueDate     string `yaml:"due_date"`
	SLAHours    int    `yaml:"sla_hours"`
	CreatedAt   string `yaml:"created_at"`
	Notes       string `yaml:"notes"`
}

func LoadFile(path string) (Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return Dataset{}, errors.New("fixture path is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, errs.Wrapf(err, "read fixture %s", path)
	}
	ds, err := Parse(raw)
	if err != nil {
		return Dataset{}, errs.Wrapf(err, "parse fixture %s", path)
	}
	return ds, nil
}

func Parse(raw []byte) (Dataset, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Dataset{}, errs.Wrap(err, "decode yaml")
	}

	ds := Dataset{
		Brands:      doc.Brands,
		TicketTypes: doc.TicketTypes,
		Users:       doc.Users,
	}
	for _, m := range doc.Markets {
		ds.Markets = append(ds.Markets, trafficking.Market{ID: m.ID, Code: m.Code, Name: m.Name, Geos: m.Geos})
	}
	for _, c := range doc.Channels {
		ds.Channels = append(ds.Channels, trafficking.Channel{ID: c.ID, Code: c.Code, Name: c.Name})
	}
	for _, a := range doc.Audiences {
		ds.Audiences = append(ds.Audiences, trafficking.Audience{ID: a.ID, Code: a.Code, Name: a.Name})
	}

	for _, t := range doc.Titles {
		release, err := parseOptionalTime(t.ReleaseDate)
		if err != nil {
			return Dataset{}, fmt.Errorf("title %s release_date: %w", t.ID, err)
		}
		ds.Titles = append(ds.Titles, trafficking.Title{
			ID:          t.ID,
			Name:        t.Name,
			Slug:        t.Slug,
			BrandID:     t.BrandID,
			ReleaseDate: release,
		})
	}

	for _, c := range doc.Campaigns {
		campaign := trafficking.Campaign{
			ID:          c.ID,
			Name:        c.Name,
			TitleID:     c.TitleID,
			MarketID:    c.MarketID,
			ChannelID:   c.ChannelID,
			AudienceID:  c.AudienceID,
			Objective:   c.Objective,
			Budget:      c.Budget,
			Geos:        c.Geos,
			LandingPage: c.LandingPage,
			Sponsorship: c.Sponsorship,
			Creative: trafficking.CreativeSpec{
				Width:           c.Creative.Width,
				Height:          c.Creative.Height,
				Format:          c.Creative.Format,
				DurationSeconds: c.Creative.DurationSeconds,
			},
		}
		if start, err := parseOptionalTime(c.StartDate); err != nil {
			return Dataset{}, fmt.Errorf("campaign %s start_date: %w", c.ID, err)
		} else if start != nil {
			campaign.StartDate = *start
		}
		if end, err := parseOptionalTime(c.EndDate); err != nil {
			return Dataset{}, fmt.Errorf("campaign %s end_date: %w", c.ID, err)
		} else if end != nil {
			campaign.EndDate = *end
		}
		ds.Campaigns = append(ds.Campaigns, campaign)
	}

	for _, t := range doc.Tickets {
		ticket, err := t.toDomain()
		if err != nil {
			return Dataset{}, err
		}
		ds.Tickets = append(ds.Tickets, ticket)
	}
	return ds, nil
}

func (t ticketDoc) toDomain() (trafficking.Ticket, error) {
	if strings.TrimSpace(t.ID) == "" {
		return trafficking.Ticket{}, errors.New("ticket id is required")
	}
	if strings.TrimSpace(t.CampaignID) == "" {
		return trafficking.Ticket{}, fmt.Errorf("ticket %s: campaign_id is required", t.ID)
	}

	stage := trafficking.StageTrafficking
	if strings.TrimSpace(t.Stage) != "" {
		parsed, err := trafficking.ParseStage(t.Stage)
		if err != nil {
			return trafficking.Ticket{}, fmt.Errorf("ticket %s: %w", t.ID, err)
		}
		stage = parsed
	}

	due, err := parseOptionalTime(t.DueDate)
	if err != nil {
		return trafficking.Ticket{}, fmt.Errorf("ticket %s due_date: %w", t.ID, err)
	}
	created, err := parseOptionalTime(t.CreatedAt)
	if err != nil {
		return trafficking.Ticket{}, fmt.Errorf("ticket %s created_at: %w", t.ID, err)
	}

	ticket := trafficking.Ticket{
		ID:          t.ID,
		CampaignID:  t.CampaignID,
		RequestType: trafficking.ParseRequestType(t.RequestType),
		Stage:       stage,
		Assignee:    t.Assignee,
		DueDate:     due,
		SLAHours:    t.SLAHours,
		Notes:       t.Notes,
	}
	if created != nil {
		ticket.CreatedAt = *created
	}
	return ticket, nil
}

// parseOptionalTime accepts RFC 3339 timestamps and plain dates.
func parseOptionalTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised time %q", raw)
}
