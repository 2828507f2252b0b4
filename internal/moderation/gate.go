package moderation

import (
	"errors"
	"time"

	"super_clicker/internal/domain"
)

const (
	ReasonBanned = "account banned"
	ReasonFrozen = "account frozen"
)

// ErrDenied is matched by every error the gate produces.
var ErrDenied = errors.New("action denied")

// DeniedError carries the user-facing reason of a gate refusal.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "action denied: " + e.Reason
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// Decision is the result of CanAct.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// CanAct must be consulted by every player-initiated mutating action before it
// has any side effect. Ban takes precedence over freeze.
func CanAct(st domain.AccountStatus, now time.Time) Decision {
	if IsActivelyBanned(st, now) {
		return Decision{Reason: ReasonBanned}
	}
	if IsActivelyFrozen(st, now) {
		return Decision{Reason: ReasonFrozen}
	}
	return Decision{Allowed: true}
}
