// Package risk scores how permissive the current configuration is. The score
// is deterministic and side-effect-free, recomputed from the live snapshot on
// every evaluation, and used for reporting only — it never gates behavior.
package risk

import (
	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/settings"
)

// Level is the ordinal risk classification.
type Level string

const (
	Low    Level = "LOW"
	Medium Level = "MEDIUM"
	High   Level = "HIGH"
)

// Contribution records one setting's share of the total score.
type Contribution struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
	Weight  int    `json:"weight"`
}

// Report is the full scorer output.
type Report struct {
	Score         int            `json:"score"`
	Level         Level          `json:"level"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// Score sums the weight table over the snapshot.
func Score(s settings.Snapshot, w *Weights) int {
	total := 0
	for _, c := range contributions(s, w) {
		total += c.Weight
	}
	return total
}

// Classify maps a score to its ordinal level using the configured thresholds.
func Classify(score int, w *Weights) Level {
	switch {
	case score <= w.Thresholds.LowMax:
		return Low
	case score < w.Thresholds.HighMin:
		return Medium
	default:
		return High
	}
}

// Evaluate produces the full report for a snapshot.
func Evaluate(s settings.Snapshot, w *Weights) Report {
	if w == nil {
		w = DefaultWeights()
	}
	contribs := contributions(s, w)
	score := 0
	for _, c := range contribs {
		score += c.Weight
	}
	return Report{
		Score:         score,
		Level:         Classify(score, w),
		Contributions: contribs,
	}
}

// contributions lists every non-zero weight the snapshot incurs, in a stable
// order matching the setting keys.
func contributions(s settings.Snapshot, w *Weights) []Contribution {
	var out []Contribution
	add := func(key, value string, weight int) {
		if weight > 0 {
			out = append(out, Contribution{Setting: key, Value: value, Weight: weight})
		}
	}

	if !s.Confirmation {
		add(settings.KeyConfirmation, "false", w.ConfirmationDisabled)
	}
	if !s.Logging {
		add(settings.KeyLogging, "false", w.LoggingDisabled)
	}
	switch s.Timing {
	case settings.TimingAggressive:
		add(settings.KeyTiming, s.Timing, w.TimingAggressive)
	case settings.TimingUnrestricted:
		add(settings.KeyTiming, s.Timing, w.TimingUnrestricted)
	}
	switch s.Captcha {
	case string(model.LevelAssisted):
		add(settings.KeyCaptcha, s.Captcha, w.CaptchaAssisted)
	case string(model.LevelAutomated):
		add(settings.KeyCaptcha, s.Captcha, w.CaptchaAutomated)
	}
	switch s.Fingerprint {
	case settings.FingerprintRandomization:
		add(settings.KeyFingerprint, s.Fingerprint, w.FingerprintRandomization)
	case settings.FingerprintSpoofing:
		add(settings.KeyFingerprint, s.Fingerprint, w.FingerprintSpoofing)
	}
	if !s.SessionVerification {
		add(settings.KeySessionVerification, "false", w.VerificationDisabled)
	}
	switch s.Challenge {
	case settings.ChallengeAssist:
		add(settings.KeyChallenge, s.Challenge, w.ChallengeAssist)
	case settings.ChallengeBypass:
		add(settings.KeyChallenge, s.Challenge, w.ChallengeBypass)
	}
	if s.FormAutoSubmit && !s.Confirmation {
		add(settings.KeyFormAutoSubmit, "true", w.FormAutoSubmit)
	}

	return out
}
