package draft

import "errors"

// Failure kinds returned by draft and session commands. Callers compare with
// errors.Is; the wrapped message carries the detail.
var (
	ErrInvalidSelection  = errors.New("invalid captain selection")
	ErrNotReady          = errors.New("draft not ready")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrDraftNotComplete  = errors.New("draft not complete")
	ErrRosterUnavailable = errors.New("roster unavailable")
	ErrNotCommissioned   = errors.New("draft not commissioned")
)

// Kind returns a stable identifier for err, or "internal" when err is not one
// of the draft failures.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSelection):
		return "InvalidSelection"
	case errors.Is(err, ErrNotReady):
		return "NotReady"
	case errors.Is(err, ErrUnknownPlayer):
		return "UnknownPlayer"
	case errors.Is(err, ErrDraftNotComplete):
		return "DraftNotComplete"
	case errors.Is(err, ErrRosterUnavailable):
		return "RosterUnavailable"
	case errors.Is(err, ErrNotCommissioned):
		return "NotCommissioned"
	default:
		return "internal"
	}
}
