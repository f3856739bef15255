package trafficking

import (
	"fmt"
	"strings"
)

// Stage is the ticket lifecycle state as stored in the record store.
type Stage string

const (
	StageIntake        Stage = "Intake"
	StageTrafficking   Stage = "Trafficking"
	StageQA            Stage = "QA"
	StageReadyToLaunch Stage = "Ready to Launch"
	StageCompleted     Stage = "Completed"
	StageBlocked       Stage = "Blocked"
)

var stages = []Stage{
	StageIntake,
	StageTrafficking,
	StageQA,
	StageReadyToLaunch,
	StageCompleted,
	StageBlocked,
}

var transitions = map[Stage][]Stage{
	StageIntake:        {StageTrafficking},
	StageTrafficking:   {StageQA, StageReadyToLaunch},
	StageQA:            {StageQA, StageReadyToLaunch, StageTrafficking},
	StageReadyToLaunch: {StageCompleted},
	StageBlocked:       {StageTrafficking},
}

// ParseStage accepts the stored value and a few spellings operators use
// ("ReadyToLaunch", "ready_to_launch").
func ParseStage(raw string) (Stage, error) {
	key := normalizeStageKey(raw)
	for _, s := range stages {
		if normalizeStageKey(string(s)) == key {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, raw)
}

func normalizeStageKey(raw string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
}

// CanTransition reports whether from -> to is a defined edge. Every stage but
// Completed may move to Blocked.
func CanTransition(from Stage, to Stage) bool {
	if to == StageBlocked {
		return from != StageCompleted && from != StageBlocked
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition is CanTransition with an ErrInvalidTransition error.
func ValidateTransition(from Stage, to Stage) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
