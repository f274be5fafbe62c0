// Package settings holds the live configuration snapshot. Every setting has
// a closed enumerated domain; updates outside the domain are rejected.
package settings

import (
	"sort"

	"github.com/okume/actguard/internal/model"
)

// Setting keys recognized by the control plane.
const (
	KeyConfirmation        = "confirmation"
	KeyLogging             = "logging"
	KeyTiming              = "timing"
	KeyCaptcha             = "captcha"
	KeyFormAutoSubmit      = "form_auto_submit"
	KeySessionVerification = "session_verification"
	KeyFingerprint         = "fingerprint"
	KeyChallenge           = "challenge"
)

// Timing strategies.
const (
	TimingRespectful   = "respectful"
	TimingAggressive   = "aggressive"
	TimingUnrestricted = "unrestricted"
)

// Fingerprint methods.
const (
	FingerprintNormalization = "normalization"
	FingerprintRandomization = "randomization"
	FingerprintSpoofing      = "spoofing"
)

// Challenge strategies.
const (
	ChallengeWait   = "wait"
	ChallengeAssist = "assist"
	ChallengeBypass = "bypass"
)

// domains maps each setting key to its closed value domain.
var domains = map[string][]string{
	KeyConfirmation:        {"true", "false"},
	KeyLogging:             {"true", "false"},
	KeyTiming:              {TimingRespectful, TimingAggressive, TimingUnrestricted},
	KeyCaptcha:             {string(model.LevelManual), string(model.LevelAssisted), string(model.LevelAutomated)},
	KeyFormAutoSubmit:      {"true", "false"},
	KeySessionVerification: {"true", "false"},
	KeyFingerprint:         {FingerprintNormalization, FingerprintRandomization, FingerprintSpoofing},
	KeyChallenge:           {ChallengeWait, ChallengeAssist, ChallengeBypass},
}

// Snapshot is the live configuration. Mutated only through the dispatcher.
type Snapshot struct {
	Confirmation        bool   `json:"confirmation"`
	Logging             bool   `json:"logging"`
	Timing              string `json:"timing"`
	Captcha             string `json:"captcha"`
	FormAutoSubmit      bool   `json:"form_auto_submit"`
	SessionVerification bool   `json:"session_verification"`
	Fingerprint         string `json:"fingerprint"`
	Challenge           string `json:"challenge"`
}

// Defaults returns the most restrictive snapshot. Score 0 under the default
// risk weights.
func Defaults() Snapshot {
	return Snapshot{
		Confirmation:        true,
		Logging:             true,
		Timing:              TimingRespectful,
		Captcha:             string(model.LevelManual),
		FormAutoSubmit:      false,
		SessionVerification: true,
		Fingerprint:         FingerprintNormalization,
		Challenge:           ChallengeWait,
	}
}

// Keys returns every recognized setting key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(domains))
	for k := range domains {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Domain returns the closed value domain for a key, or false if unknown.
func Domain(key string) ([]string, bool) {
	d, ok := domains[key]
	return d, ok
}

// Set validates key and value against the closed domains and applies the
// update. Unknown keys and out-of-domain values leave the snapshot unchanged.
func (s *Snapshot) Set(key, value string) error {
	domain, ok := domains[key]
	if !ok {
		return &model.UnknownSettingError{Key: key}
	}
	valid := false
	for _, v := range domain {
		if v == value {
			valid = true
			break
		}
	}
	if !valid {
		return &model.UnknownSettingError{Key: key, Value: value}
	}

	switch key {
	case KeyConfirmation:
		s.Confirmation = value == "true"
	case KeyLogging:
		s.Logging = value == "true"
	case KeyTiming:
		s.Timing = value
	case KeyCaptcha:
		s.Captcha = value
	case KeyFormAutoSubmit:
		s.FormAutoSubmit = value == "true"
	case KeySessionVerification:
		s.SessionVerification = value == "true"
	case KeyFingerprint:
		s.Fingerprint = value
	case KeyChallenge:
		s.Challenge = value
	}
	return nil
}

// Get returns the current value for a key as a string.
func (s Snapshot) Get(key string) (string, error) {
	switch key {
	case KeyConfirmation:
		return boolValue(s.Confirmation), nil
	case KeyLogging:
		return boolValue(s.Logging), nil
	case KeyTiming:
		return s.Timing, nil
	case KeyCaptcha:
		return s.Captcha, nil
	case KeyFormAutoSubmit:
		return boolValue(s.FormAutoSubmit), nil
	case KeySessionVerification:
		return boolValue(s.SessionVerification), nil
	case KeyFingerprint:
		return s.Fingerprint, nil
	case KeyChallenge:
		return s.Challenge, nil
	default:
		return "", &model.UnknownSettingError{Key: key}
	}
}

// ToMap flattens the snapshot for persistence and display.
func (s Snapshot) ToMap() map[string]string {
	m := make(map[string]string, len(domains))
	for _, k := range Keys() {
		v, _ := s.Get(k)
		m[k] = v
	}
	return m
}

// FromMap merges persisted values over defaults. Unknown keys are ignored,
// out-of-domain values fall back to the default, missing keys keep defaults.
// Forward and backward tolerant, versionless.
func FromMap(m map[string]string) Snapshot {
	s := Defaults()
	for k, v := range m {
		_ = s.Set(k, v) // invalid entries keep the default
	}
	return s
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
