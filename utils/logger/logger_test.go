package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("Test", "WARN", &buf)

	l.Infof("hidden %d", 1)
	require.Empty(t, buf.String())

	l.Warnf("shown %d", 2)
	require.Contains(t, buf.String(), "shown 2")
	require.Contains(t, buf.String(), "Test")

	buf.Reset()
	l.SetLevel("DEBUG")
	l.Debugf("debug line")
	require.Contains(t, buf.String(), "debug line")
}

func TestLoggerDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("Test", "bogus", &buf)
	l.Debugf("hidden")
	require.Empty(t, buf.String())
	l.Infof("visible")
	require.Contains(t, buf.String(), "visible")
}
