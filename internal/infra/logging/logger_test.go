package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
)

func TestParseLevel(t *testing.T) {
	level, err := logging.ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, level)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)

	handler, err := logging.ParseHandler("text")
	require.NoError(t, err)
	assert.Equal(t, logging.TextHandler, handler)
}

func TestNewWithWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Child(logging.NewWithWriter(&buf, logging.LevelWarn, logging.JSONHandler), "AccountStore")

	logger.Info("hidden")
	logger.Warn("shown", logging.Error(errors.New("boom")))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "boom", entry[logging.ErrorKey])
}
