package risk

import (
	"math/rand"
	"testing"

	"github.com/okume/actguard/internal/settings"
)

func TestDefaultsScoreZero(t *testing.T) {
	report := Evaluate(settings.Defaults(), DefaultWeights())
	if report.Score != 0 {
		t.Errorf("default score = %d, want 0", report.Score)
	}
	if report.Level != Low {
		t.Errorf("default level = %s, want LOW", report.Level)
	}
	if len(report.Contributions) != 0 {
		t.Errorf("defaults produced contributions: %v", report.Contributions)
	}
}

func TestSingleSettingWeights(t *testing.T) {
	w := DefaultWeights()

	cases := []struct {
		key, value string
		want       int
	}{
		{settings.KeyConfirmation, "false", 3},
		{settings.KeyLogging, "false", 2},
		{settings.KeyTiming, settings.TimingAggressive, 1},
		{settings.KeyTiming, settings.TimingUnrestricted, 2},
		{settings.KeyCaptcha, "assisted", 1},
		{settings.KeyCaptcha, "automated", 2},
		{settings.KeyFingerprint, settings.FingerprintRandomization, 1},
		{settings.KeyFingerprint, settings.FingerprintSpoofing, 2},
		{settings.KeySessionVerification, "false", 2},
		{settings.KeyChallenge, settings.ChallengeAssist, 1},
		{settings.KeyChallenge, settings.ChallengeBypass, 2},
	}
	for _, tc := range cases {
		s := settings.Defaults()
		if err := s.Set(tc.key, tc.value); err != nil {
			t.Fatalf("Set(%s, %s): %v", tc.key, tc.value, err)
		}
		if got := Score(s, w); got != tc.want {
			t.Errorf("score with %s=%s is %d, want %d", tc.key, tc.value, got, tc.want)
		}
	}
}

func TestFormAutoSubmitChargedOnlyWithoutConfirmation(t *testing.T) {
	w := DefaultWeights()

	s := settings.Defaults()
	s.FormAutoSubmit = true
	if got := Score(s, w); got != 0 {
		t.Errorf("auto-submit with confirmation on scored %d, want 0", got)
	}

	s.Confirmation = false
	// confirmation_disabled (3) plus form_auto_submit (1)
	if got := Score(s, w); got != 4 {
		t.Errorf("auto-submit without confirmation scored %d, want 4", got)
	}
}

func TestClassifyThresholds(t *testing.T) {
	w := DefaultWeights()

	cases := []struct {
		score int
		want  Level
	}{
		{0, Low}, {2, Low}, {3, Medium}, {8, Medium}, {9, High}, {20, High},
	}
	for _, tc := range cases {
		if got := Classify(tc.score, w); got != tc.want {
			t.Errorf("Classify(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestContributionsSumToScore(t *testing.T) {
	w := DefaultWeights()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		s := randomSnapshot(rng)
		report := Evaluate(s, w)
		sum := 0
		for _, c := range report.Contributions {
			sum += c.Weight
		}
		if sum != report.Score {
			t.Fatalf("contributions sum %d != score %d for %+v", sum, report.Score, s)
		}
		// Deterministic: same snapshot, same report.
		again := Evaluate(s, w)
		if again.Score != report.Score || again.Level != report.Level {
			t.Fatalf("evaluation not deterministic for %+v", s)
		}
	}
}

func randomSnapshot(rng *rand.Rand) settings.Snapshot {
	s := settings.Defaults()
	for _, k := range settings.Keys() {
		domain, _ := settings.Domain(k)
		if err := s.Set(k, domain[rng.Intn(len(domain))]); err != nil {
			panic(err)
		}
	}
	return s
}

func TestNilWeightsFallBackToDefaults(t *testing.T) {
	s := settings.Defaults()
	s.Confirmation = false
	report := Evaluate(s, nil)
	if report.Score != 3 {
		t.Errorf("nil-weight score = %d, want 3", report.Score)
	}
}
