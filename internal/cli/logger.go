package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// newLogger builds the structured logger of the command.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level

	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return nil, errors.Wrapf(errUsage, "invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, errors.Wrapf(errUsage, "invalid log format %q", format)
	}
}
