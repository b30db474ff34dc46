package logger

import (
	"bytes"
	"testing"

	"github.com/magnetodb/magneto/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	c := require.New(t)

	logger := New(&bytes.Buffer{}, config.Logging{Enabled: true})
	c.Equal(zerolog.InfoLevel, logger.GetLevel())

	logger = New(&bytes.Buffer{}, config.Logging{Enabled: true, Level: "DEBUG"})
	c.Equal(zerolog.DebugLevel, logger.GetLevel())

	logger = New(&bytes.Buffer{}, config.Logging{Enabled: true, Level: "verbose"})
	c.Equal(zerolog.InfoLevel, logger.GetLevel())
}

func TestNewOutput(t *testing.T) {
	c := require.New(t)

	var buf bytes.Buffer

	log := New(&buf, config.Logging{Enabled: true, Format: "json"})
	log.Info().Msg("table created")
	c.Contains(buf.String(), `"message":"table created"`)
	c.Contains(buf.String(), `"service":"magnetodb"`)

	buf.Reset()
	log = New(&buf, config.Logging{Enabled: true, Format: "console"})
	log.Info().Msg("table created")
	c.Contains(buf.String(), "table created")
	c.NotContains(buf.String(), `"message"`)

	buf.Reset()
	log = New(&buf, config.Logging{Enabled: false})
	log.Error().Msg("table created")
	c.Empty(buf.String())

	buf.Reset()
	log = New(&buf, config.Logging{Enabled: true, Level: "warn"})
	log.Info().Msg("table created")
	c.Empty(buf.String())
}
