package trafficking

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"adtraffic/internal/domain/taxonomy"
)

// payloadNamespace seeds the name-based payload ids so reprocessing a ticket
// yields the same ids.
var payloadNamespace = uuid.MustParse("6f1c1f8e-4a55-5b8e-9d3c-2f0d7e1a9b42")

const defaultCategory = "Acq"

// Construction is the engine output for one ticket: the payloads that were
// built plus the platform/geo combinations that could not be.
type Construction struct {
	Payloads []Payload
	Failures []*PayloadError
}

// Planned is the number of platform/geo combinations the engine attempted.
func (c Construction) Planned() int {
	return len(c.Payloads) + len(c.Failures)
}

// Engine turns tickets into payloads. It holds no mutable state and makes no
// external calls.
type Engine struct {
	platforms PlatformMap
}

func NewEngine(platforms PlatformMap) *Engine {
	if len(platforms) == 0 {
		platforms = DefaultPlatformMap()
	}
	return &Engine{platforms: platforms}
}

// ProcessTicket builds the payloads for ticket. Construction-level problems
// (unresolvable campaign references, unsupported channel) are returned as an
// error; a taxonomy failure for one platform/geo only lands in Failures.
func (e *Engine) ProcessTicket(ticket Ticket, campaign Campaign, lookups Lookups) (Construction, error) {
	switch ticket.RequestType {
	case RequestNewCampaign:
		return e.build(ticket, campaign, lookups, ActionCreatePlacement)
	case RequestRetrafficking:
		return e.build(ticket, campaign, lookups, ActionUpdatePlacement)
	case RequestOther:
		return Construction{}, nil
	}
	return Construction{}, nil
}

type resolvedRefs struct {
	brand    Brand
	title    Title
	market   Market
	channel  Channel
	audience string
}

func (e *Engine) build(ticket Ticket, campaign Campaign, lookups Lookups, action Action) (Construction, error) {
	refs, err := resolve(campaign, lookups)
	if err != nil {
		return Construction{}, err
	}

	platforms, err := e.platforms.Select(refs.channel.Code)
	if err != nil {
		return Construction{}, err
	}

	geos := targetGeos(campaign, refs.market)
	if len(geos) == 0 {
		return Construction{}, &MissingReferenceError{CampaignID: campaign.ID, Field: "geo"}
	}

	titleToken := strings.TrimSpace(refs.title.Slug)
	if titleToken == "" {
		titleToken = taxonomy.Slug(refs.title.Name)
	}
	category := strings.TrimSpace(campaign.Objective)
	if category == "" {
		category = defaultCategory
	}

	budgets := splitBudget(campaign.Budget, len(platforms)*len(geos))

	var out Construction
	slot := 0
	for _, platform := range platforms {
		for _, geo := range geos {
			budget := budgets[slot]
			slot++

			parts := taxonomy.Parts{
				Brand:    refs.brand.Code,
				Title:    titleToken,
				Category: category,
				Market:   geo,
				Channel:  refs.channel.Code,
			}
			name, err := taxonomy.Build(parts)
			if err != nil {
				out.Failures = append(out.Failures, &PayloadError{Platform: platform, Geo: geo, Err: err})
				continue
			}

			payload := Payload{
				ID:            payloadID(ticket.ID, campaign.ID, platform, geo, action),
				TicketID:      ticket.ID,
				CampaignID:    campaign.ID,
				Platform:      platform,
				Action:        action,
				EngineVersion: EngineVersion(platform, refs.channel.Code),
				Taxonomy:      name,
				TaxonomyParts: parts.Tokens(),
				Geo:           geo,
				Budget:        budget,
				Audience:      refs.audience,
			}
			if action == ActionCreatePlacement {
				payload.LandingPage = campaign.LandingPage
				payload.Creative = campaign.Creative
				payload.FlightStart = campaign.StartDate
				payload.FlightEnd = campaign.EndDate
			}
			out.Payloads = append(out.Payloads, payload)
		}
	}

	return out, nil
}

func resolve(campaign Campaign, lookups Lookups) (resolvedRefs, error) {
	var refs resolvedRefs

	if campaign.Title == nil {
		return refs, &MissingReferenceError{CampaignID: campaign.ID, Field: "title", RefID: campaign.TitleID}
	}
	refs.title = *campaign.Title

	brand, ok := lookups.Brands[refs.title.BrandID]
	if !ok {
		return refs, &MissingReferenceError{CampaignID: campaign.ID, Field: "brand", RefID: refs.title.BrandID}
	}
	refs.brand = brand

	switch {
	case campaign.Market != nil:
		refs.market = *campaign.Market
	default:
		market, ok := lookups.Markets[campaign.MarketID]
		if !ok {
			return refs, &MissingReferenceError{CampaignID: campaign.ID, Field: "market", RefID: campaign.MarketID}
		}
		refs.market = market
	}

	switch {
	case campaign.Channel != nil:
		refs.channel = *campaign.Channel
	default:
		channel, ok := lookups.Channels[campaign.ChannelID]
		if !ok {
			return refs, &MissingReferenceError{CampaignID: campaign.ID, Field: "channel", RefID: campaign.ChannelID}
		}
		refs.channel = channel
	}

	if campaign.AudienceID != "" {
		if audience, ok := lookups.Audiences[campaign.AudienceID]; ok {
			refs.audience = audience.Code
		}
	}
	return refs, nil
}

// targetGeos returns the campaign geos, deduplicated and sorted, falling back
// to the market's approved geos when the campaign declares none.
func targetGeos(campaign Campaign, market Market) []string {
	raw := campaign.Geos
	if len(raw) == 0 {
		raw = market.ApprovedGeos()
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, geo := range raw {
		geo = strings.TrimSpace(geo)
		if _, dup := seen[geo]; dup {
			continue
		}
		seen[geo] = struct{}{}
		out = append(out, geo)
	}
	sort.Strings(out)
	return out
}

// splitBudget divides total evenly in cents; the remainder goes to the first slot.
func splitBudget(total float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	cents := int64(math.Round(total * 100))
	share := cents / int64(n)
	remainder := cents - share*int64(n)

	out := make([]float64, n)
	for i := range out {
		c := share
		if i == 0 {
			c += remainder
		}
		out[i] = float64(c) / 100
	}
	return out
}

func payloadID(ticketID, campaignID string, platform Platform, geo string, action Action) string {
	name := strings.Join([]string{ticketID, campaignID, string(platform), geo, string(action)}, "|")
	return uuid.NewSHA1(payloadNamespace, []byte(name)).String()
}
