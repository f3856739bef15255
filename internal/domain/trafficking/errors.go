package trafficking

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedChannel = errors.New("unsupported channel")
	ErrMissingReference   = errors.New("missing campaign reference")
	ErrInvalidStage       = errors.New("invalid stage")
	ErrInvalidTransition  = errors.New("invalid stage transition")
)

// UnsupportedChannelError is returned when a campaign channel has no platform
// mapping. The ticket goes to manual review instead of being trafficked.
type UnsupportedChannelError struct {
	ChannelCode string
}

func (e *UnsupportedChannelError) Error() string {
	return fmt.Sprintf("unsupported channel %q", e.ChannelCode)
}

func (e *UnsupportedChannelError) Unwrap() error { return ErrUnsupportedChannel }

func (e *UnsupportedChannelError) Reason() string {
	return fmt.Sprintf("Channel %q has no platform mapping; route to manual trafficking.", e.ChannelCode)
}

// MissingReferenceError reports a campaign that does not resolve to exactly one
// title, market, channel or brand at trafficking time.
type MissingReferenceError struct {
	CampaignID string
	Field      string
	RefID      string
}

func (e *MissingReferenceError) Error() string {
	if e.RefID == "" {
		return fmt.Sprintf("campaign %s: %s reference is empty", e.CampaignID, e.Field)
	}
	return fmt.Sprintf("campaign %s: %s %q not found", e.CampaignID, e.Field, e.RefID)
}

func (e *MissingReferenceError) Unwrap() error { return ErrMissingReference }

func (e *MissingReferenceError) Reason() string {
	if e.RefID == "" {
		return fmt.Sprintf("Campaign %s has no %s; fill it in before trafficking.", e.CampaignID, e.Field)
	}
	return fmt.Sprintf("Campaign %s references unknown %s %q.", e.CampaignID, e.Field, e.RefID)
}

// PayloadError is a construction failure confined to one platform/geo payload.
type PayloadError struct {
	Platform Platform
	Geo      string
	Err      error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("payload %s/%s: %v", e.Platform, e.Geo, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }
