// Package qa runs the compliance battery over trafficking payloads.
//
// Checks are pure functions of (Payload, Campaign). They never share state and
// never notify anyone; the orchestrator decides what to do with the results.
package qa

import (
	"sort"

	"adtraffic/internal/domain/trafficking"
)

// Verdict is the outcome of one check on one payload.
type Verdict string

const (
	VerdictPass        Verdict = "Pass"
	VerdictNeedsReview Verdict = "Needs Review"
	VerdictFail        Verdict = "Fail"
)

func (v Verdict) severity() int {
	switch v {
	case VerdictPass:
		return 0
	case VerdictNeedsReview:
		return 1
	default:
		return 2
	}
}

// Blocking reports whether the verdict keeps a ticket from launching.
func (v Verdict) Blocking() bool {
	return v != VerdictPass
}

// CheckName identifies a check in results and in the audit log.
type CheckName string

const (
	CheckGeoTargeting      CheckName = "Geo Targeting"
	CheckTaxonomy          CheckName = "Taxonomy Validation"
	CheckSpecCompliance    CheckName = "Spec Compliance"
	CheckLandingPage       CheckName = "Landing Page"
	CheckContentExclusions CheckName = "Content Exclusions"
	CheckConstruction      CheckName = "Payload Construction"
)

// Result is one check verdict for one payload.
type Result struct {
	Check     CheckName
	PayloadID string
	Platform  trafficking.Platform
	Geo       string
	Verdict   Verdict
	Detail    string
}

// Check evaluates one rule against one payload.
type Check func(trafficking.Payload, trafficking.Campaign) Result

// CoreChecks is the fixed Geo, Taxonomy, Spec battery.
func CoreChecks(rules RuleTable) []Check {
	return []Check{
		GeoTargeting,
		TaxonomyValidity,
		SpecCompliance(rules),
	}
}

// DefaultChecks is the core battery followed by the landing page and content
// exclusion checks.
func DefaultChecks(rules RuleTable) []Check {
	return append(CoreChecks(rules), LandingPage, ContentExclusions)
}

type Engine struct {
	checks []Check
}

func NewEngine(checks ...Check) *Engine {
	cloned := make([]Check, len(checks))
	copy(cloned, checks)
	return &Engine{checks: cloned}
}

// RunAllChecks runs every check on every payload with no short-circuit.
// Payloads are visited ordered by platform then geo (then id), and each
// payload's results follow the battery order.
func (e *Engine) RunAllChecks(payloads []trafficking.Payload, campaign trafficking.Campaign) []Result {
	ordered := make([]trafficking.Payload, len(payloads))
	copy(ordered, payloads)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.Geo != b.Geo {
			return a.Geo < b.Geo
		}
		return a.ID < b.ID
	})

	results := make([]Result, 0, len(ordered)*len(e.checks))
	for _, payload := range ordered {
		for _, check := range e.checks {
			res := check(payload, campaign)
			res.PayloadID = payload.ID
			res.Platform = payload.Platform
			res.Geo = payload.Geo
			results = append(results, res)
		}
	}
	return results
}

// ConstructionFailures turns per-payload construction errors into Fail results
// so they reach the audit log next to the QA results.
func ConstructionFailures(failures []*trafficking.PayloadError) []Result {
	out := make([]Result, 0, len(failures))
	for _, f := range failures {
		out = append(out, Result{
			Check:    CheckConstruction,
			Platform: f.Platform,
			Geo:      f.Geo,
			Verdict:  VerdictFail,
			Detail:   f.Err.Error(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].Geo < out[j].Geo
	})
	return out
}

// Aggregate returns the worst verdict. NeedsReview and Fail both block a
// ticket; Fail outranks NeedsReview. An empty slice aggregates to Pass.
func Aggregate(results []Result) Verdict {
	worst := VerdictPass
	for _, r := range results {
		if r.Verdict.severity() > worst.severity() {
			worst = r.Verdict
		}
	}
	return worst
}

// Failures returns the blocking results in their original order.
func Failures(results []Result) []Result {
	out := make([]Result, 0)
	for _, r := range results {
		if r.Verdict.Blocking() {
			out = append(out, r)
		}
	}
	return out
}
