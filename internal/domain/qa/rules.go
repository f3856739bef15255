package qa

import (
	"fmt"
	"strings"

	"adtraffic/internal/domain/trafficking"
)

// PlatformRules are the structural constraints one platform enforces.
type PlatformRules struct {
	MinBudget float64
	// CreativeSizes lists accepted "WxH" sizes; empty accepts any size.
	CreativeSizes []string
	// Formats lists accepted creative formats; empty accepts any format.
	Formats         []string
	MaxVideoSeconds int
}

// RuleTable is keyed by platform.
type RuleTable map[trafficking.Platform]PlatformRules

// DefaultRuleTable is used when no rules file overrides it.
func DefaultRuleTable() RuleTable {
	display := []string{"300x250", "728x90", "160x600", "300x600", "320x50", "970x250"}
	return RuleTable{
		trafficking.PlatformDV360: {
			MinBudget:       500,
			CreativeSizes:   display,
			Formats:         []string{"display", "video"},
			MaxVideoSeconds: 60,
		},
		trafficking.PlatformCM360: {
			MinBudget:       0,
			CreativeSizes:   append([]string{"1920x1080", "1280x720"}, display...),
			Formats:         []string{"display", "video", "audio", "native"},
			MaxVideoSeconds: 120,
		},
		trafficking.PlatformAmazonDSP: {
			MinBudget:       1000,
			CreativeSizes:   []string{"1920x1080", "1280x720", "300x250", "728x90"},
			Formats:         []string{"display", "video"},
			MaxVideoSeconds: 30,
		},
		trafficking.PlatformYahooDSP: {
			MinBudget: 250,
			Formats:   []string{"display", "native"},
		},
		trafficking.PlatformMeta: {
			MinBudget:       100,
			CreativeSizes:   []string{"1080x1080", "1080x1920", "1200x628"},
			Formats:         []string{"display", "video"},
			MaxVideoSeconds: 60,
		},
		trafficking.PlatformTikTok: {
			MinBudget:       50,
			CreativeSizes:   []string{"1080x1920"},
			Formats:         []string{"video"},
			MaxVideoSeconds: 60,
		},
	}
}

func (t RuleTable) For(p trafficking.Platform) (PlatformRules, bool) {
	rule, ok := t[p]
	return rule, ok
}

// Problems lists every constraint p violates. Creative rules only apply to
// payloads that create placements.
func (r PlatformRules) Problems(p trafficking.Payload) []string {
	var problems []string

	if p.Budget < r.MinBudget {
		problems = append(problems, fmt.Sprintf("budget %.2f below %s minimum %.2f", p.Budget, p.Platform, r.MinBudget))
	}

	if p.Action != trafficking.ActionCreatePlacement {
		return problems
	}

	if p.Creative.IsZero() {
		return append(problems, "missing creative spec")
	}

	if len(r.CreativeSizes) > 0 {
		size := fmt.Sprintf("%dx%d", p.Creative.Width, p.Creative.Height)
		if !containsFold(r.CreativeSizes, size) {
			problems = append(problems, fmt.Sprintf("creative %s not accepted by %s (%s)", size, p.Platform, strings.Join(r.CreativeSizes, ", ")))
		}
	}
	if len(r.Formats) > 0 && !containsFold(r.Formats, p.Creative.Format) {
		problems = append(problems, fmt.Sprintf("format %q not accepted by %s", p.Creative.Format, p.Platform))
	}
	if r.MaxVideoSeconds > 0 && p.Creative.DurationSeconds > r.MaxVideoSeconds {
		problems = append(problems, fmt.Sprintf("duration %ds exceeds %s maximum %ds", p.Creative.DurationSeconds, p.Platform, r.MaxVideoSeconds))
	}
	return problems
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}
