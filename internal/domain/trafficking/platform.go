package trafficking

import (
	"sort"
	"strings"
)

// PlatformMap maps a channel code to the platforms its placements are trafficked on.
type PlatformMap map[string][]Platform

// DefaultPlatformMap is used when no rules file overrides it.
func DefaultPlatformMap() PlatformMap {
	return PlatformMap{
		"ProgDisplay": {PlatformDV360},
		"ProgVideo":   {PlatformDV360},
		"ProgAudio":   {PlatformCM360},
		"ProgCTV":     {PlatformAmazonDSP, PlatformCM360},
		"ProgNative":  {PlatformYahooDSP},
		"YouTube":     {PlatformCM360},
		"PaidSocial":  {PlatformMeta, PlatformTikTok},
		"Meta":        {PlatformMeta},
		"TikTok":      {PlatformTikTok},
	}
}

// Select returns the platforms for channelCode sorted by name. Lookup is exact
// first, then case-insensitive; when several keys fold to the same code the
// lexically smallest wins.
func (m PlatformMap) Select(channelCode string) ([]Platform, error) {
	code := strings.TrimSpace(channelCode)
	platforms, ok := m[code]
	if !ok {
		keys := make([]string, 0, len(m))
		for key := range m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if strings.EqualFold(key, code) {
				platforms, ok = m[key], true
				break
			}
		}
	}
	if !ok || len(platforms) == 0 {
		return nil, &UnsupportedChannelError{ChannelCode: channelCode}
	}

	out := make([]Platform, 0, len(platforms))
	seen := make(map[Platform]struct{}, len(platforms))
	for _, p := range platforms {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// EngineVersion picks the trafficking engine generation that handles a
// platform/channel pair.
func EngineVersion(platform Platform, channelCode string) string {
	switch {
	case platform == PlatformCM360 && (channelCode == "ProgAudio" || channelCode == "ProgCTV" || channelCode == "ProgNative"):
		return "V2.2"
	case platform == PlatformCM360 && channelCode == "YouTube":
		return "V2.1"
	case platform == PlatformYahooDSP:
		return "V2"
	case platform == PlatformAmazonDSP:
		return "V3"
	default:
		return "V1"
	}
}
