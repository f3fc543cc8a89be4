// Package logging builds the zerolog loggers used by the command-line tools.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatPretty  = "pretty"
	FormatConsole = "console"
)

type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Format is one of json, pretty or console; empty means console.
	Format string
	// Out defaults to stderr.
	Out io.Writer
}

// New returns a logger with timestamps at the requested level and format.
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = l
	}

	var w io.Writer
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		w = out
	case FormatPretty:
		w = NewPrettyJSONWriter(out)
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// PrettyJSONWriter re-indents each JSON event zerolog writes so that logs are
// readable without extra tooling. It is not meant for high throughput.
type PrettyJSONWriter struct {
	w   io.Writer
	mu  *sync.Mutex
	buf bytes.Buffer
}

func NewPrettyJSONWriter(w io.Writer) *PrettyJSONWriter {
	return &PrettyJSONWriter{w: w, mu: &sync.Mutex{}}
}

// Write accepts exactly one event per call. Input that is not valid JSON is
// passed through unchanged.
func (p *PrettyJSONWriter) Write(event []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Reset()
	if err := json.Indent(&p.buf, bytes.TrimRight(event, "\n"), "", "  "); err != nil {
		if _, err := p.w.Write(event); err != nil {
			return 0, err
		}
		return len(event), nil
	}
	p.buf.WriteByte('\n')
	if _, err := p.w.Write(p.buf.Bytes()); err != nil {
		return 0, err
	}
	return len(event), nil
}
