package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("INFO"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.FatalLevel, ParseLevel("fatal"))

	// Unknown levels fall back to warn
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(""))
}

func TestComponent(t *testing.T) {
	log := Component("api")
	// Component loggers must be independently usable
	log.Debug().Str("url", "https://example.test").Msg("request")
}
