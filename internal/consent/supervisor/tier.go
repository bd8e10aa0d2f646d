package supervisor

import (
	"consentd/internal/consent/service"
)

// Tier is the fallback cascade position. Each tier is attempted only when
// the one above it is unavailable; the choice is a pure function of
// controller state, retry progress, and store availability.
type Tier string

const (
	// TierPrimary is the full banner/modal experience.
	TierPrimary Tier = "primary"
	// TierRecoverable is the reduced control surface shown mid-retry:
	// accept-essential, accept-all, and manual retry stay interactive.
	TierRecoverable Tier = "recoverable"
	// TierFatal is the minimal two-action banner shown after a fatal error
	// or exhausted automatic retries; writes bypass the controller.
	TierFatal Tier = "fatal"
	// TierTerminal applies when the persistence medium itself is unusable:
	// a best-effort write at most, otherwise a static non-dismissible
	// notice pointing at an external contact channel.
	TierTerminal Tier = "terminal"
)

// SelectTier maps the current failure posture to a cascade tier.
func SelectTier(state service.State, exhausted bool, storeAvailable bool) Tier {
	if !storeAvailable {
		return TierTerminal
	}
	if state.LastError == nil {
		return TierPrimary
	}
	if !state.LastError.Recoverable || exhausted {
		return TierFatal
	}
	return TierRecoverable
}
