package config

import (
	"os"

	"github.com/phuslu/log"
)

// SetupLogging configures the global logger from the log section. The CLI passes
// stderr so stdout stays reserved for JSON output.
func SetupLogging(c LogConfig, out *os.File) {
	if out == nil {
		out = os.Stderr
	}
	level := log.ParseLevel(c.Level)
	if c.Console {
		log.DefaultLogger = log.Logger{
			Level:  level,
			Writer: &log.ConsoleWriter{Writer: out, ColorOutput: false},
		}
		return
	}
	log.DefaultLogger = log.Logger{
		Level:  level,
		Writer: &log.IOWriter{Writer: out},
	}
}
