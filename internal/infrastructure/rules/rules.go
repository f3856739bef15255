// Package rules loads the channel-to-platform map and the per-platform spec
// rule table from a TOML profile.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"adtraffic/internal/domain/qa"
	"adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
)

type platformRuleConfig struct {
	MinBudget       float64  `toml:"min_budget"`
	CreativeSizes   []string `toml:"creative_sizes"`
	Formats         []string `toml:"formats"`
	MaxVideoSeconds int      `toml:"max_video_seconds"`
}

type profile struct {
	Version   int                           `toml:"version"`
	Platforms map[string][]string           `toml:"platforms"`
	Rules     map[string]platformRuleConfig `toml:"rules"`
}

// Set is what the engines are configured with.
type Set struct {
	Platforms trafficking.PlatformMap
	Rules     qa.RuleTable
}

// Defaults is the built-in profile used when no rules file is configured.
func Defaults() Set {
	return Set{
		Platforms: trafficking.DefaultPlatformMap(),
		Rules:     qa.DefaultRuleTable(),
	}
}

// LoadFile reads path. An empty path yields Defaults. A section missing from
// the file keeps its default.
func LoadFile(path string) (Set, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Defaults(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, errs.Wrapf(err, "read rules file %s", path)
	}
	set, err := Parse(raw)
	if err != nil {
		return Set{}, errs.Wrapf(err, "parse rules file %s", path)
	}
	return set, nil
}

func Parse(raw []byte) (Set, error) {
	var p profile
	if err := toml.Unmarshal(raw, &p); err != nil {
		return Set{}, err
	}
	if p.Version != 0 && p.Version != 1 {
		return Set{}, fmt.Errorf("unsupported rules version %d", p.Version)
	}

	set := Defaults()

	if len(p.Platforms) > 0 {
		set.Platforms = make(trafficking.PlatformMap, len(p.Platforms))
		folded := make(map[string]string, len(p.Platforms))
		for channel, names := range p.Platforms {
			channel = strings.TrimSpace(channel)
			if channel == "" {
				return Set{}, errors.New("platforms: channel code is required")
			}
			if other, dup := folded[strings.ToLower(channel)]; dup {
				a, b := other, channel
				if b < a {
					a, b = b, a
				}
				return Set{}, fmt.Errorf("platforms: channel codes %q and %q differ only by case", a, b)
			}
			folded[strings.ToLower(channel)] = channel
			if len(names) == 0 {
				return Set{}, fmt.Errorf("platforms.%s: at least one platform is required", channel)
			}
			platforms := make([]trafficking.Platform, 0, len(names))
			for _, name := range names {
				platform, err := parsePlatform(name)
				if err != nil {
					return Set{}, fmt.Errorf("platforms.%s: %w", channel, err)
				}
				platforms = append(platforms, platform)
			}
			set.Platforms[channel] = platforms
		}
	}

	if len(p.Rules) > 0 {
		set.Rules = make(qa.RuleTable, len(p.Rules))
		for name, cfg := range p.Rules {
			platform, err := parsePlatform(name)
			if err != nil {
				return Set{}, fmt.Errorf("rules: %w", err)
			}
			if cfg.MinBudget < 0 {
				return Set{}, fmt.Errorf("rules.%s.min_budget must be >= 0", name)
			}
			set.Rules[platform] = qa.PlatformRules{
				MinBudget:       cfg.MinBudget,
				CreativeSizes:   cfg.CreativeSizes,
				Formats:         cfg.Formats,
				MaxVideoSeconds: cfg.MaxVideoSeconds,
			}
		}
	}
	return set, nil
}

var knownPlatforms = []trafficking.Platform{
	trafficking.PlatformCM360,
	trafficking.PlatformDV360,
	trafficking.PlatformAmazonDSP,
	trafficking.PlatformYahooDSP,
	trafficking.PlatformMeta,
	trafficking.PlatformTikTok,
}

func parsePlatform(raw string) (trafficking.Platform, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	for _, p := range knownPlatforms {
		if strings.ToLower(strings.ReplaceAll(string(p), " ", "")) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", raw)
}
