// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{
			name:     "calendar summary wins",
			values:   []string{"Weekly sync", "Provider title", "Recorded Meeting"},
			expected: "Weekly sync",
		},
		{
			name:     "falls through empty values",
			values:   []string{"", "", "Recorded Meeting"},
			expected: "Recorded Meeting",
		},
		{
			name:     "blank values are skipped",
			values:   []string{"  ", "\t", "Provider title"},
			expected: "Provider title",
		},
		{
			name:     "returns empty string when all empty",
			values:   []string{"", ""},
			expected: "",
		},
		{
			name:     "returns empty string when no arguments",
			values:   []string{},
			expected: "",
		},
		{
			name:     "keeps surrounding whitespace of the chosen value",
			values:   []string{"", " Standup "},
			expected: " Standup ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CoalesceString(tt.values...)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}
