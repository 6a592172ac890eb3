package logging

import (
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	defer func(l log.Logger) { log.DefaultLogger = l }(log.DefaultLogger)

	Setup("WARN", "json")
	assert.Equal(t, log.WarnLevel, log.DefaultLogger.Level)
	_, isConsole := log.DefaultLogger.Writer.(*log.ConsoleWriter)
	assert.False(t, isConsole)

	Setup("debug", "")
	assert.Equal(t, log.DebugLevel, log.DefaultLogger.Level)
	_, isConsole = log.DefaultLogger.Writer.(*log.ConsoleWriter)
	assert.True(t, isConsole)
}
