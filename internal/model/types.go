package model

// Mode is the privilege tier gating which automation levels are reachable.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeAdvanced Mode = "advanced"
	ModeResearch Mode = "research"
)

// ModeRank maps modes to comparable integers for privilege ordering.
var ModeRank = map[Mode]int{
	ModeStandard: 0,
	ModeAdvanced: 1,
	ModeResearch: 2,
}

// ParseMode validates a raw mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStandard, ModeAdvanced, ModeResearch:
		return Mode(s), nil
	default:
		return "", &InvalidModeError{Value: s}
	}
}

// AtLeast reports whether m carries at least the privilege of min.
func (m Mode) AtLeast(min Mode) bool {
	return ModeRank[m] >= ModeRank[min]
}

// AutomationLevel is how much human-in-the-loop interaction an action requires.
type AutomationLevel string

const (
	LevelManual    AutomationLevel = "manual"
	LevelAssisted  AutomationLevel = "assisted"
	LevelAutomated AutomationLevel = "automated"
)

// LevelRank maps automation levels to comparable integers.
var LevelRank = map[AutomationLevel]int{
	LevelManual:    0,
	LevelAssisted:  1,
	LevelAutomated: 2,
}

// ParseLevel validates a raw automation level string.
func ParseLevel(s string) (AutomationLevel, bool) {
	switch AutomationLevel(s) {
	case LevelManual, LevelAssisted, LevelAutomated:
		return AutomationLevel(s), true
	default:
		return "", false
	}
}

// ActionType tags a sensitive action request. The set is closed: the
// dispatcher switches exhaustively over these values.
type ActionType string

const (
	ActionHandleChallenge    ActionType = "handle-challenge"
	ActionSolveCaptcha       ActionType = "solve-captcha"
	ActionSyncSession        ActionType = "sync-session"
	ActionSubmitForm         ActionType = "submit-form"
	ActionStoreCredential    ActionType = "store-credential"
	ActionRetrieveCredential ActionType = "retrieve-credential"
	ActionExportAudit        ActionType = "export-audit"
	ActionChangeMode         ActionType = "change-mode"
	ActionUpdateConfig       ActionType = "update-config"
	ActionAcceptTerms        ActionType = "accept-terms"
)

// ActionTypes lists every recognized action type in a stable order.
var ActionTypes = []ActionType{
	ActionHandleChallenge,
	ActionSolveCaptcha,
	ActionSyncSession,
	ActionSubmitForm,
	ActionStoreCredential,
	ActionRetrieveCredential,
	ActionExportAudit,
	ActionChangeMode,
	ActionUpdateConfig,
	ActionAcceptTerms,
}

// ParseActionType validates a raw action type string.
func ParseActionType(s string) (ActionType, bool) {
	for _, t := range ActionTypes {
		if ActionType(s) == t {
			return t, true
		}
	}
	return "", false
}

// Decision is the gate outcome for a requested action.
type Decision string

const (
	Allow  Decision = "allow"
	Deny   Decision = "deny"
	Defer  Decision = "defer"
	Cancel Decision = "cancel"
)

// Request is one tagged action request entering the dispatcher.
type Request struct {
	Type    ActionType     `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// PayloadString extracts a string field from the request payload.
func (r Request) PayloadString(key string) string {
	if r.Payload == nil {
		return ""
	}
	s, _ := r.Payload[key].(string)
	return s
}

// PayloadBool extracts a boolean field from the request payload.
func (r Request) PayloadBool(key string) bool {
	if r.Payload == nil {
		return false
	}
	b, _ := r.Payload[key].(bool)
	return b
}

// Response is the structured result returned for every dispatched request.
// Exactly one terminal outcome per request: performed, deferred, denied,
// cancelled, or errored.
type Response struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Kind    string         `json:"kind,omitempty"`
}

// OK builds a success response.
func OK(data map[string]any) Response {
	return Response{Success: true, Data: data}
}

// Fail builds a failure response carrying the error's taxonomy kind.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error(), Kind: ErrorKind(err)}
}
