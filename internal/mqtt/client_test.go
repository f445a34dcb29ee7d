package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"netsentry/devices/42/status", "netsentry/devices/42/status", true},
		{"netsentry/devices/+/status", "netsentry/devices/42/status", true},
		{"netsentry/devices/+/status", "netsentry/devices/42/config", false},
		{"netsentry/#", "netsentry/devices/42/status", true},
		{"netsentry/devices/+/status", "netsentry/devices/status", false},
		{"netsentry/traps", "netsentry/traps/extra", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchTopic(tc.pattern, tc.topic), "%s vs %s", tc.pattern, tc.topic)
	}
}
