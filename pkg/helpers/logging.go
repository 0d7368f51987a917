package helpers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// InitLogging configures the global zerolog logger to append the
// session report to reportPath (rotated) and mirror it to any extra
// writers.
func InitLogging(reportPath string, debug bool, writers []io.Writer) error {
	if dir := filepath.Dir(reportPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	logWriters := []io.Writer{&lumberjack.Logger{
		Filename:   reportPath,
		MaxSize:    1,
		MaxBackups: 2,
	}}
	logWriters = append(logWriters, writers...)

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = log.Output(io.MultiWriter(logWriters...)).
		Level(level).
		With().Timestamp().Logger()

	return nil
}
