package domain

import "testing"

func TestSeverityClassify(t *testing.T) {
	policy := DefaultSeverityPolicy()

	cases := []struct {
		score       int
		blacklisted bool
		want        Severity
	}{
		{0, false, SeverityClear},
		{5, false, SeverityClear},
		{9, false, SeverityClear},
		{10, false, SeverityLow},
		{39, false, SeverityLow},
		{40, false, SeverityMedium},
		{69, false, SeverityMedium},
		{70, false, SeverityHigh},
		{100, false, SeverityHigh},
		// Blacklist sempre vence o score.
		{95, true, SeverityCritical},
		{0, true, SeverityCritical},
	}

	for _, tc := range cases {
		if got := policy.Classify(tc.score, tc.blacklisted); got != tc.want {
			t.Errorf("Classify(%d, %v): got %s, want %s", tc.score, tc.blacklisted, got, tc.want)
		}
	}
}

func TestSeverityClassifyCustomPolicy(t *testing.T) {
	policy := SeverityPolicy{ClearMax: 5, LowMax: 20, MediumMax: 50}

	if got := policy.Classify(7, false); got != SeverityLow {
		t.Errorf("score 7 with ClearMax 5: got %s, want low", got)
	}
	if got := policy.Classify(55, false); got != SeverityHigh {
		t.Errorf("score 55 with MediumMax 50: got %s, want high", got)
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityHigh) {
		t.Error("critical should be at least high")
	}
	if !SeverityMedium.AtLeast(SeverityMedium) {
		t.Error("medium should be at least medium")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Error("low should not be at least medium")
	}
	if SeverityClear.AtLeast(SeverityLow) {
		t.Error("clear should not be at least low")
	}
}
