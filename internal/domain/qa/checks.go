package qa

import (
	"fmt"
	"net/url"
	"strings"

	"adtraffic/internal/domain/taxonomy"
	"adtraffic/internal/domain/trafficking"
)

func pass(check CheckName, detail string) Result {
	return Result{Check: check, Verdict: VerdictPass, Detail: detail}
}

func fail(check CheckName, detail string) Result {
	return Result{Check: check, Verdict: VerdictFail, Detail: detail}
}

func review(check CheckName, detail string) Result {
	return Result{Check: check, Verdict: VerdictNeedsReview, Detail: detail}
}

// GeoTargeting fails a payload whose geo is not approved for the campaign market.
func GeoTargeting(p trafficking.Payload, c trafficking.Campaign) Result {
	if c.Market == nil {
		return fail(CheckGeoTargeting, fmt.Sprintf("Campaign %s has no market to approve geo %s.", c.ID, p.Geo))
	}

	approved := c.Market.ApprovedGeos()
	for _, geo := range approved {
		if strings.EqualFold(strings.TrimSpace(geo), p.Geo) {
			return pass(CheckGeoTargeting, fmt.Sprintf("Geo %s approved for market %s.", p.Geo, c.Market.Code))
		}
	}
	return fail(CheckGeoTargeting, fmt.Sprintf("Geo %s is outside approved market %s (%s).", p.Geo, c.Market.Code, strings.Join(approved, ", ")))
}

// TaxonomyValidity re-validates the payload taxonomy string, and when the
// parts are known, that they rebuild to the same string.
func TaxonomyValidity(p trafficking.Payload, _ trafficking.Campaign) Result {
	if err := taxonomy.Validate(p.Taxonomy); err != nil {
		return fail(CheckTaxonomy, err.Error())
	}

	if len(p.TaxonomyParts) == taxonomy.MinTokens {
		parts := taxonomy.Parts{
			Brand:    p.TaxonomyParts[0],
			Title:    p.TaxonomyParts[1],
			Category: p.TaxonomyParts[2],
			Market:   p.TaxonomyParts[3],
			Channel:  p.TaxonomyParts[4],
		}
		rebuilt, err := taxonomy.Build(parts)
		if err != nil {
			return fail(CheckTaxonomy, err.Error())
		}
		if rebuilt != p.Taxonomy {
			return fail(CheckTaxonomy, fmt.Sprintf("Taxonomy %q does not follow %s order, expected %q.", p.Taxonomy, taxonomy.Version, rebuilt))
		}
	}
	return pass(CheckTaxonomy, fmt.Sprintf("Taxonomy %s valid.", p.Taxonomy))
}

// SpecCompliance validates the payload against the platform rule table.
func SpecCompliance(rules RuleTable) Check {
	return func(p trafficking.Payload, _ trafficking.Campaign) Result {
		rule, ok := rules.For(p.Platform)
		if !ok {
			return review(CheckSpecCompliance, fmt.Sprintf("No spec rules configured for %s.", p.Platform))
		}

		problems := rule.Problems(p)
		if len(problems) > 0 {
			return fail(CheckSpecCompliance, strings.Join(problems, "; ")+".")
		}
		return pass(CheckSpecCompliance, fmt.Sprintf("Payload matches %s spec.", p.Platform))
	}
}

// LandingPage requires an https click-through on new placements.
func LandingPage(p trafficking.Payload, _ trafficking.Campaign) Result {
	if p.Action != trafficking.ActionCreatePlacement {
		return pass(CheckLandingPage, "Landing page unchanged by placement update.")
	}

	raw := strings.TrimSpace(p.LandingPage)
	if raw == "" {
		return fail(CheckLandingPage, "Missing landing page URL.")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fail(CheckLandingPage, fmt.Sprintf("Malformed landing page URL: %s", raw))
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fail(CheckLandingPage, fmt.Sprintf("Non-HTTPS URL provided: %s", raw))
	}
	return pass(CheckLandingPage, "Landing page uses HTTPS.")
}

// ContentExclusions routes sponsorship buys to standards and practices review.
func ContentExclusions(_ trafficking.Payload, c trafficking.Campaign) Result {
	if c.Sponsorship || strings.Contains(c.Name, "BES") || strings.Contains(strings.ToLower(c.Name), "sponsorship") {
		return review(CheckContentExclusions, "Sponsorship requires S&P review.")
	}
	return pass(CheckContentExclusions, "Standard exclusions applied.")
}
