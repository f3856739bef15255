package trafficking

import (
	"errors"
	"testing"
)

func TestParseStage(t *testing.T) {
	tests := map[string]Stage{
		"Trafficking":     StageTrafficking,
		"ready to launch": StageReadyToLaunch,
		"ReadyToLaunch":   StageReadyToLaunch,
		"ready_to_launch": StageReadyToLaunch,
		" qa ":            StageQA,
		"Blocked":         StageBlocked,
	}
	for in, want := range tests {
		got, err := ParseStage(in)
		if err != nil || got != want {
			t.Fatalf("ParseStage(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseStage("Launched"); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("ParseStage(Launched) error = %v, want ErrInvalidStage", err)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]Stage{
		{StageTrafficking, StageReadyToLaunch},
		{StageTrafficking, StageQA},
		{StageQA, StageQA},
		{StageTrafficking, StageBlocked},
		{StageQA, StageBlocked},
		{StageReadyToLaunch, StageBlocked},
		{StageBlocked, StageTrafficking},
		{StageReadyToLaunch, StageCompleted},
	}
	for _, edge := range allowed {
		if !CanTransition(edge[0], edge[1]) {
			t.Fatalf("CanTransition(%s, %s) = false", edge[0], edge[1])
		}
	}

	denied := [][2]Stage{
		{StageTrafficking, StageCompleted},
		{StageReadyToLaunch, StageTrafficking},
		{StageCompleted, StageBlocked},
		{StageBlocked, StageBlocked},
		{StageIntake, StageReadyToLaunch},
	}
	for _, edge := range denied {
		if CanTransition(edge[0], edge[1]) {
			t.Fatalf("CanTransition(%s, %s) = true", edge[0], edge[1])
		}
		if err := ValidateTransition(edge[0], edge[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("ValidateTransition(%s, %s) error = %v", edge[0], edge[1], err)
		}
	}
}

func TestParseRequestType(t *testing.T) {
	tests := map[string]RequestType{
		"New Campaign":       RequestNewCampaign,
		"new placements":     RequestNewCampaign,
		"Retrafficking":      RequestRetrafficking,
		"Creative Rotation":  RequestRetrafficking,
		"Budget Change":      RequestOther,
		"":                   RequestOther,
		"  NEW   CAMPAIGN  ": RequestNewCampaign,
	}
	for in, want := range tests {
		if got := ParseRequestType(in); got != want {
			t.Fatalf("ParseRequestType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPlatformMapSelect(t *testing.T) {
	m := PlatformMap{"ProgCTV": {PlatformCM360, PlatformAmazonDSP, PlatformCM360}}

	got, err := m.Select("progctv")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(got) != 2 || got[0] != PlatformAmazonDSP || got[1] != PlatformCM360 {
		t.Fatalf("Select() = %v", got)
	}

	if _, err := m.Select("Radio"); !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("Select(Radio) error = %v", err)
	}
}

func TestPlatformMapSelectCaseCollision(t *testing.T) {
	m := PlatformMap{
		"progdisplay": {PlatformTikTok},
		"ProgDisplay": {PlatformDV360},
		"PROGDISPLAY": {PlatformMeta},
	}

	// Exact keys still win.
	if got, err := m.Select("progdisplay"); err != nil || got[0] != PlatformTikTok {
		t.Fatalf("Select(progdisplay) = %v, %v", got, err)
	}
	for i := 0; i < 50; i++ {
		got, err := m.Select("Progdisplay")
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if len(got) != 1 || got[0] != PlatformMeta {
			t.Fatalf("Select() = %v, want [%s] on every call", got, PlatformMeta)
		}
	}
}
