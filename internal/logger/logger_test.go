package logger

import (
	"testing"

	"rating-ledger/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewUsesConfiguredLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"disabled", zerolog.Disabled},
	}

	for _, test := range tests {
		t.Run(test.level, func(t *testing.T) {
			l := New(&config.Config{LogLevel: test.level})
			assert.Equal(t, test.expected, l.GetLevel())
		})
	}
}
