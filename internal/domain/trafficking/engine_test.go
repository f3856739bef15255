package trafficking

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"adtraffic/internal/domain/taxonomy"
)

func testLookups() Lookups {
	return Lookups{
		Brands: map[string]Brand{
			"B1": {ID: "B1", Code: "PLUS", Name: "Disney+"},
		},
		Markets: map[string]Market{
			"M1": {ID: "M1", Code: "US", Name: "United States", Geos: []string{"US"}},
		},
		Channels: map[string]Channel{
			"CH1": {ID: "CH1", Code: "ProgDisplay"},
			"CH2": {ID: "CH2", Code: "PaidSocial"},
			"CH9": {ID: "CH9", Code: "Radio"},
		},
		Audiences: map[string]Audience{
			"A1": {ID: "A1", Code: "A18-34"},
		},
	}
}

func testCampaign() Campaign {
	return Campaign{
		ID:          "C1",
		Name:        "Loki S2 Launch",
		TitleID:     "TI1",
		MarketID:    "M1",
		ChannelID:   "CH1",
		AudienceID:  "A1",
		Title:       &Title{ID: "TI1", Name: "Loki", BrandID: "B1"},
		Market:      &Market{ID: "M1", Code: "US", Geos: []string{"US"}},
		Channel:     &Channel{ID: "CH1", Code: "ProgDisplay"},
		Objective:   "Acq",
		Budget:      10000,
		LandingPage: "https://www.disneyplus.com/loki",
		Creative:    CreativeSpec{Width: 300, Height: 250, Format: "display"},
		StartDate:   time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestProcessTicketNewCampaign(t *testing.T) {
	engine := NewEngine(nil)
	ticket := Ticket{ID: "T1", CampaignID: "C1", RequestType: RequestNewCampaign, Stage: StageTrafficking}

	got, err := engine.ProcessTicket(ticket, testCampaign(), testLookups())
	if err != nil {
		t.Fatalf("ProcessTicket() error = %v", err)
	}
	if len(got.Failures) != 0 || len(got.Payloads) != 1 {
		t.Fatalf("ProcessTicket() = %+v", got)
	}

	p := got.Payloads[0]
	if p.Taxonomy != "PLUS_Loki_Acq_US_ProgDisplay" {
		t.Fatalf("taxonomy = %q", p.Taxonomy)
	}
	if p.Platform != PlatformDV360 || p.Action != ActionCreatePlacement || p.EngineVersion != "V1" {
		t.Fatalf("payload = %+v", p)
	}
	if p.Budget != 10000 || p.Geo != "US" || p.Audience != "A18-34" {
		t.Fatalf("payload = %+v", p)
	}
	if p.Creative.Width != 300 || p.LandingPage == "" {
		t.Fatalf("payload creative/landing = %+v", p)
	}
	campaign := testCampaign()
	if !p.FlightStart.Equal(campaign.StartDate) || !p.FlightEnd.Equal(campaign.EndDate) {
		t.Fatalf("payload flight = %v - %v, want %v - %v", p.FlightStart, p.FlightEnd, campaign.StartDate, campaign.EndDate)
	}
}

func TestProcessTicketIsIdempotent(t *testing.T) {
	engine := NewEngine(nil)
	campaign := testCampaign()
	campaign.ChannelID, campaign.Channel = "CH2", nil
	campaign.Geos = []string{"US", "CA", "US"}
	ticket := Ticket{ID: "T7", CampaignID: "C1", RequestType: RequestNewCampaign}

	first, err := engine.ProcessTicket(ticket, campaign, testLookups())
	if err != nil {
		t.Fatalf("ProcessTicket() error = %v", err)
	}
	second, err := engine.ProcessTicket(ticket, campaign, testLookups())
	if err != nil {
		t.Fatalf("ProcessTicket() error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("ProcessTicket() not idempotent (-first +second):\n%s", diff)
	}

	var order []string
	for _, p := range first.Payloads {
		order = append(order, string(p.Platform)+"/"+p.Geo)
	}
	want := []string{"Meta/CA", "Meta/US", "TikTok/CA", "TikTok/US"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("payload order (-want +got):\n%s", diff)
	}

	total := 0.0
	for _, p := range first.Payloads {
		total += p.Budget
	}
	if total != 10000 {
		t.Fatalf("budget total = %v, want 10000", total)
	}
}

func TestProcessTicketOtherIsEmpty(t *testing.T) {
	engine := NewEngine(nil)
	for _, raw := range []string{"Budget Change", "Site Tagging", "", "Kochava"} {
		ticket := Ticket{ID: "T3", RequestType: ParseRequestType(raw)}

		got, err := engine.ProcessTicket(ticket, Campaign{}, Lookups{})
		if err != nil {
			t.Fatalf("ProcessTicket(%q) error = %v", raw, err)
		}
		if len(got.Payloads) != 0 || len(got.Failures) != 0 {
			t.Fatalf("ProcessTicket(%q) = %+v, want empty", raw, got)
		}
	}
}

func TestProcessTicketUnsupportedChannel(t *testing.T) {
	engine := NewEngine(nil)
	campaign := testCampaign()
	campaign.ChannelID, campaign.Channel = "CH9", nil

	_, err := engine.ProcessTicket(Ticket{ID: "T2", RequestType: RequestNewCampaign}, campaign, testLookups())
	if !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("ProcessTicket() error = %v, want ErrUnsupportedChannel", err)
	}
	var uce *UnsupportedChannelError
	if !errors.As(err, &uce) || uce.ChannelCode != "Radio" {
		t.Fatalf("ProcessTicket() error = %#v", err)
	}
}

func TestProcessTicketMissingReferences(t *testing.T) {
	engine := NewEngine(nil)

	noTitle := testCampaign()
	noTitle.Title = nil
	_, err := engine.ProcessTicket(Ticket{ID: "T4", RequestType: RequestNewCampaign}, noTitle, testLookups())
	var mre *MissingReferenceError
	if !errors.As(err, &mre) || mre.Field != "title" {
		t.Fatalf("ProcessTicket(no title) error = %v", err)
	}

	noMarket := testCampaign()
	noMarket.Market, noMarket.MarketID = nil, ""
	_, err = engine.ProcessTicket(Ticket{ID: "T4", RequestType: RequestNewCampaign}, noMarket, testLookups())
	if !errors.Is(err, ErrMissingReference) {
		t.Fatalf("ProcessTicket(no market) error = %v", err)
	}
}

func TestProcessTicketPartialTaxonomyFailure(t *testing.T) {
	engine := NewEngine(nil)
	campaign := testCampaign()
	campaign.Geos = []string{"US", "U-K"}

	got, err := engine.ProcessTicket(Ticket{ID: "T5", RequestType: RequestNewCampaign}, campaign, testLookups())
	if err != nil {
		t.Fatalf("ProcessTicket() error = %v", err)
	}
	if len(got.Payloads) != 1 || got.Payloads[0].Geo != "US" {
		t.Fatalf("payloads = %+v", got.Payloads)
	}
	if len(got.Failures) != 1 || got.Failures[0].Geo != "U-K" {
		t.Fatalf("failures = %+v", got.Failures)
	}
	if !errors.Is(got.Failures[0], taxonomy.ErrInvalidReference) {
		t.Fatalf("failure error = %v", got.Failures[0])
	}
	if got.Planned() != 2 || got.Payloads[0].Budget != 5000 {
		t.Fatalf("planned = %d, budget = %v", got.Planned(), got.Payloads[0].Budget)
	}
}

func TestProcessTicketRetraffickingReusesTaxonomy(t *testing.T) {
	engine := NewEngine(nil)
	campaign := testCampaign()

	created, err := engine.ProcessTicket(Ticket{ID: "T1", RequestType: RequestNewCampaign}, campaign, testLookups())
	if err != nil {
		t.Fatalf("ProcessTicket(new) error = %v", err)
	}
	campaign.Budget = 12000
	updated, err := engine.ProcessTicket(Ticket{ID: "T9", RequestType: RequestRetrafficking}, campaign, testLookups())
	if err != nil {
		t.Fatalf("ProcessTicket(retrafficking) error = %v", err)
	}

	p := updated.Payloads[0]
	if p.Taxonomy != created.Payloads[0].Taxonomy {
		t.Fatalf("taxonomy = %q, want %q", p.Taxonomy, created.Payloads[0].Taxonomy)
	}
	if p.Action != ActionUpdatePlacement || p.Budget != 12000 {
		t.Fatalf("payload = %+v", p)
	}
	if !p.Creative.IsZero() || p.LandingPage != "" || !p.FlightStart.IsZero() || !p.FlightEnd.IsZero() {
		t.Fatalf("retrafficking payload carries creative fields: %+v", p)
	}
}

func TestSplitBudget(t *testing.T) {
	got := splitBudget(100, 3)
	want := []float64{33.34, 33.33, 33.33}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("splitBudget() (-want +got):\n%s", diff)
	}
	if splitBudget(100, 0) != nil {
		t.Fatal("splitBudget(n=0) != nil")
	}
}

func TestEngineVersion(t *testing.T) {
	tests := []struct {
		platform Platform
		channel  string
		want     string
	}{
		{PlatformCM360, "ProgCTV", "V2.2"},
		{PlatformCM360, "YouTube", "V2.1"},
		{PlatformYahooDSP, "ProgNative", "V2"},
		{PlatformAmazonDSP, "ProgCTV", "V3"},
		{PlatformDV360, "ProgDisplay", "V1"},
	}
	for _, tt := range tests {
		if got := EngineVersion(tt.platform, tt.channel); got != tt.want {
			t.Fatalf("EngineVersion(%s, %s) = %q, want %q", tt.platform, tt.channel, got, tt.want)
		}
	}
}
