package trafficking

import (
	"strings"
	"time"
)

// RequestType is the closed set of ticket request kinds the engine branches on.
type RequestType int

const (
	RequestOther RequestType = iota
	RequestNewCampaign
	RequestRetrafficking
)

func (r RequestType) String() string {
	switch r {
	case RequestNewCampaign:
		return "NewCampaign"
	case RequestRetrafficking:
		return "Retrafficking"
	default:
		return "Other"
	}
}

// ParseRequestType maps the free-text request type found on tickets onto the
// enum. Unknown values are RequestOther, never an error.
func ParseRequestType(raw string) RequestType {
	normalized := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	switch {
	case strings.Contains(normalized, "newcampaign"), strings.Contains(normalized, "newplacements"):
		return RequestNewCampaign
	case strings.Contains(normalized, "retrafficking"), strings.Contains(normalized, "creativerotation"):
		return RequestRetrafficking
	default:
		return RequestOther
	}
}

// Platform is a target ad platform a payload is built for.
type Platform string

const (
	PlatformCM360     Platform = "CM360"
	PlatformDV360     Platform = "DV360"
	PlatformAmazonDSP Platform = "Amazon DSP"
	PlatformYahooDSP  Platform = "Yahoo DSP"
	PlatformMeta      Platform = "Meta"
	PlatformTikTok    Platform = "TikTok"
)

// Action is what the payload asks the platform to do.
type Action string

const (
	ActionCreatePlacement Action = "CREATE_PLACEMENT"
	ActionUpdatePlacement Action = "UPDATE_PLACEMENT"
)

type Ticket struct {
	ID          string
	CampaignID  string
	RequestType RequestType
	Stage       Stage
	Assignee    string
	DueDate     *time.Time
	SLAHours    int
	CreatedAt   time.Time
	Notes       string
}

type Campaign struct {
	ID          string
	Name        string
	TitleID     string
	MarketID    string
	ChannelID   string
	AudienceID  string
	Title       *Title
	Market      *Market
	Channel     *Channel
	Objective   string
	Budget      float64
	StartDate   time.Time
	EndDate     time.Time
	Geos        []string
	LandingPage string
	Creative    CreativeSpec
	Sponsorship bool
}

// CreativeSpec describes the creative a placement is trafficked with.
type CreativeSpec struct {
	Width           int
	Height          int
	Format          string
	DurationSeconds int
}

func (c CreativeSpec) IsZero() bool {
	return c == CreativeSpec{}
}

type Title struct {
	ID          string
	Name        string
	Slug        string
	BrandID     string
	ReleaseDate *time.Time
}

type Brand struct {
	ID   string
	Code string
	Name string
}

type Market struct {
	ID   string
	Code string
	Name string
	// Geos are the geo codes approved for the market; empty means just Code.
	Geos []string
}

// ApprovedGeos returns the geo codes a campaign in this market may target.
func (m Market) ApprovedGeos() []string {
	if len(m.Geos) == 0 {
		if m.Code == "" {
			return nil
		}
		return []string{m.Code}
	}
	out := make([]string, len(m.Geos))
	copy(out, m.Geos)
	return out
}

type Channel struct {
	ID   string
	Code string
	Name string
}

type Audience struct {
	ID   string
	Code string
	Name string
}

type TicketType struct {
	ID   string
	Name string
}

type User struct {
	ID    string
	Name  string
	Email string
}

// Lookups is the reference data loaded once per batch. The engine only reads it.
type Lookups struct {
	Brands      map[string]Brand
	Markets     map[string]Market
	Channels    map[string]Channel
	Audiences   map[string]Audience
	TicketTypes map[string]TicketType
	Users       map[string]User
}

// Payload is one deliverable ad unit built from a ticket. It is never persisted.
type Payload struct {
	ID            string
	TicketID      string
	CampaignID    string
	Platform      Platform
	Action        Action
	EngineVersion string
	Taxonomy      string
	TaxonomyParts []string
	Geo           string
	Budget        float64
	Audience      string
	LandingPage   string
	Creative      CreativeSpec
	// FlightStart and FlightEnd are set on placement creation only; zero when
	// the campaign has no flight dates.
	FlightStart time.Time
	FlightEnd   time.Time
}
