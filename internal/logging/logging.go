package logging

import (
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup configures the global logger. format is "console" (default) or "json".
func Setup(level, format string) {
	logger := log.Logger{
		Level:      log.ParseLevel(strings.ToLower(level)),
		Caller:     1,
		TimeFormat: "2006-01-02 15:04:05",
		Writer:     &log.IOWriter{Writer: os.Stderr},
	}
	if format != "json" {
		logger.Writer = &log.ConsoleWriter{
			ColorOutput:    log.IsTerminal(os.Stderr.Fd()),
			QuoteString:    true,
			EndWithMessage: true,
		}
	}
	log.DefaultLogger = logger
}
