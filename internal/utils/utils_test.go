package utils

import (
	"testing"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// TestIsValidStatusTransition verifies the stream lifecycle graph.
func TestIsValidStatusTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.StatusInitStartup, models.StatusInStartupProcessing, true},
		{models.StatusInStartupProcessing, models.StatusActive, true},
		{models.StatusInStartupProcessing, models.StatusInactive, true},
		{models.StatusActive, models.StatusInitShutdown, true},
		{models.StatusActive, models.StatusInactive, true},
		{models.StatusInitShutdown, models.StatusInShutdownProcessing, true},
		{models.StatusInShutdownProcessing, models.StatusInactive, true},
		{models.StatusInactive, models.StatusInitStartup, true},

		{models.StatusInitStartup, models.StatusActive, false},
		{models.StatusActive, models.StatusInitStartup, false},
		{models.StatusInactive, models.StatusActive, false},
		{models.StatusInitShutdown, models.StatusActive, false},
		{"bogus", models.StatusActive, false},
	}

	for _, tc := range cases {
		if got := IsValidStatusTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("IsValidStatusTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
