package loggable

import (
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
)

func TestZeroValueDiscards(t *testing.T) {
	var l Loggable

	assert.NotPanics(t, func() {
		l.Debugf("nothing %d", 1)
		l.Errorf("nothing %d", 2)
	})
	assert.NotNil(t, l.Logger())
}

func TestLevels(t *testing.T) {
	sb := strings.Builder{}
	var l Loggable

	assert.NoError(t, WithLogger(log.NewLogfmtLogger(&sb))(&l))
	l.Debugf("debug testing %d", 1)
	l.Infof("info testing %d", 2)
	l.Warnf("warn testing %d", 3)
	l.Errorf("error testing %d", 4)

	out := sb.String()
	assert.Contains(t, out, `level=debug msg="debug testing 1"`)
	assert.Contains(t, out, `level=info msg="info testing 2"`)
	assert.Contains(t, out, `level=warn msg="warn testing 3"`)
	assert.Contains(t, out, `level=error msg="error testing 4"`)
}

func TestWithLevel(t *testing.T) {
	sb := strings.Builder{}
	var l Loggable

	assert.NoError(t, WithLogger(log.NewLogfmtLogger(&sb))(&l))
	assert.NoError(t, WithLevel(level.AllowWarn())(&l))

	l.Debugf("hidden")
	l.Infof("hidden")
	l.Warnf("shown")

	assert.NotContains(t, sb.String(), "hidden")
	assert.Contains(t, sb.String(), "shown")
}

func TestWith(t *testing.T) {
	sb := strings.Builder{}
	var l Loggable

	assert.NoError(t, WithLogger(log.NewLogfmtLogger(&sb))(&l))
	l2 := l.With("mech", "SCRAM-SHA-1")
	l2.Infof("hello")

	assert.Contains(t, sb.String(), "mech=SCRAM-SHA-1")

	// the receiver keeps its own context
	sb.Reset()
	l.Infof("plain")
	assert.NotContains(t, sb.String(), "mech=")

	var empty Loggable
	quiet := empty.With("mech", "SCRAM-SHA-1")
	assert.NotPanics(t, func() { quiet.Infof("dropped") })
	assert.Nil(t, quiet.logger)
}
