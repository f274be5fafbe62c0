package risk

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Thresholds defines the score boundaries between risk levels.
// score <= low_max -> LOW, score >= high_min -> HIGH, MEDIUM between.
type Thresholds struct {
	LowMax  int `yaml:"low_max"`
	HighMin int `yaml:"high_min"`
}

// Weights is the risk weight table. The exact numbers are an editorial
// choice, not a policy calculus, so they live in adjustable configuration
// rather than code.
type Weights struct {
	ConfirmationDisabled     int `yaml:"confirmation_disabled"`
	LoggingDisabled          int `yaml:"logging_disabled"`
	TimingAggressive         int `yaml:"timing_aggressive"`
	TimingUnrestricted       int `yaml:"timing_unrestricted"`
	CaptchaAssisted          int `yaml:"captcha_assisted"`
	CaptchaAutomated         int `yaml:"captcha_automated"`
	FingerprintRandomization int `yaml:"fingerprint_randomization"`
	FingerprintSpoofing      int `yaml:"fingerprint_spoofing"`
	VerificationDisabled     int `yaml:"verification_disabled"`
	ChallengeAssist          int `yaml:"challenge_assist"`
	ChallengeBypass          int `yaml:"challenge_bypass"`
	FormAutoSubmit           int `yaml:"form_auto_submit"`

	Thresholds Thresholds `yaml:"thresholds"`
}

// DefaultWeights returns the built-in table.
func DefaultWeights() *Weights {
	return &Weights{
		ConfirmationDisabled:     3,
		LoggingDisabled:          2,
		TimingAggressive:         1,
		TimingUnrestricted:       2,
		CaptchaAssisted:          1,
		CaptchaAutomated:         2,
		FingerprintRandomization: 1,
		FingerprintSpoofing:      2,
		VerificationDisabled:     2,
		ChallengeAssist:          1,
		ChallengeBypass:          2,
		FormAutoSubmit:           1,
		Thresholds: Thresholds{
			LowMax:  2,
			HighMin: 9,
		},
	}
}

// LoadWeights loads the weight table from a YAML file. Empty path falls back
// to ~/.actguard/risk.yaml. Missing file returns defaults; YAML overwrites
// only specified fields.
func LoadWeights(path string) (*Weights, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultWeights(), nil
		}
		path = filepath.Join(home, ".actguard", "risk.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultWeights(), nil
		}
		return nil, fmt.Errorf("risk: read weights: %w", err)
	}

	w := DefaultWeights()
	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("risk: parse weights: %w", err)
	}
	return w, nil
}

// DefaultWeightsYAML returns a commented YAML string for actguard init.
func DefaultWeightsYAML() string {
	return `# actguard risk weight table
# Generated by: actguard init
#
# Each weight is the score contribution of a permissive setting value.
# The total classifies as:
#   score <= thresholds.low_max  -> LOW
#   score >= thresholds.high_min -> HIGH
#   otherwise                    -> MEDIUM
#
# The score summarizes configuration permissiveness for reporting only.
# It never gates behavior.
confirmation_disabled: 3
logging_disabled: 2
timing_aggressive: 1
timing_unrestricted: 2
captcha_assisted: 1
captcha_automated: 2
fingerprint_randomization: 1
fingerprint_spoofing: 2
verification_disabled: 2
challenge_assist: 1
challenge_bypass: 2
form_auto_submit: 1

thresholds:
  low_max: 2
  high_min: 9
`
}
