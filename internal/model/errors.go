package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every kind is local and recoverable: handlers return these
// as structured failures, never as process-fatal conditions.

// InvalidModeError reports an unrecognized mode value.
type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q (allowed: standard|advanced|research)", e.Value)
}

// InsufficientPrivilegeError reports a mode too low for the requested
// automation level.
type InsufficientPrivilegeError struct {
	Action   ActionType
	Level    AutomationLevel
	Mode     Mode
	Required Mode
}

func (e *InsufficientPrivilegeError) Error() string {
	return fmt.Sprintf("%s at level %s requires mode %s or above (current: %s)",
		e.Action, e.Level, e.Required, e.Mode)
}

// UserDeclinedError reports explicit decline or cancellation during the
// interactive confirmation step.
type UserDeclinedError struct {
	Action ActionType
	Reason string
}

func (e *UserDeclinedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s cancelled: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("%s cancelled by user", e.Action)
}

// MissingConsentError reports a credential operation without the required
// consent flag. Checked before the gate; independent of mode.
type MissingConsentError struct {
	Action ActionType
}

func (e *MissingConsentError) Error() string {
	return fmt.Sprintf("%s requires explicit consent (payload field \"consent\": true)", e.Action)
}

// OwnershipMismatchError reports a session sync across unverified owners.
type OwnershipMismatchError struct {
	Source string
	Target string
}

func (e *OwnershipMismatchError) Error() string {
	return fmt.Sprintf("sessions %q and %q do not belong to the same owner", e.Source, e.Target)
}

// UnknownSettingError reports a configuration update with an unrecognized key
// or a value outside the setting's closed domain.
type UnknownSettingError struct {
	Key   string
	Value string
}

func (e *UnknownSettingError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("setting %q does not accept value %q", e.Key, e.Value)
	}
	return fmt.Sprintf("unknown setting %q", e.Key)
}

// ErrorKind maps an error to its wire-visible taxonomy kind. Unrecognized
// errors report as "internal".
func ErrorKind(err error) string {
	var invMode *InvalidModeError
	var insuff *InsufficientPrivilegeError
	var declined *UserDeclinedError
	var consent *MissingConsentError
	var owner *OwnershipMismatchError
	var setting *UnknownSettingError

	switch {
	case errors.As(err, &invMode):
		return "invalid_mode"
	case errors.As(err, &insuff):
		return "insufficient_privilege"
	case errors.As(err, &declined):
		return "user_declined"
	case errors.As(err, &consent):
		return "missing_consent"
	case errors.As(err, &owner):
		return "ownership_mismatch"
	case errors.As(err, &setting):
		return "unknown_setting"
	default:
		return "internal"
	}
}
