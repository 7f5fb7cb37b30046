// Package logging builds the application logger shared with raft.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options selects the logger output
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// New creates the root "printd" logger. It writes to stderr unless an
// output is given.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            "printd",
		Level:           level,
		Output:          out,
		JSONFormat:      opts.JSON,
		IncludeLocation: level <= hclog.Debug,
	})
}

// NewNop returns a logger that discards everything
func NewNop() hclog.Logger {
	return hclog.NewNullLogger()
}
