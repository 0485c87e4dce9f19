package logs

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Init replaces its output/level/format;
// packages hold no state of their own.
var Logger = logrus.New()

type Options struct {
	Level  string // trace|debug|info|warn|error (default info)
	Format string // text|json
	File   string // optional log file; stderr is always kept
}

func Init(o Options) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(o.Level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	switch strings.ToLower(o.Format) {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := io.Writer(os.Stderr)
	if o.File != "" {
		_ = os.MkdirAll(filepath.Dir(o.File), 0o755)
		if f, err := os.OpenFile(o.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			out = io.MultiWriter(os.Stderr, f)
		} else {
			Logger.Warnf("log file %s: %v", o.File, err)
		}
	}
	Logger.SetOutput(out)
}
