package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// New returns a text logger writing to stderr at the given level.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug/info/warn/error to slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var dedup = &deduplicator{
	flushDelay: 2 * time.Second,
}

// deduplicator collapses identical consecutive messages into one line with a
// repeat count, flushed after flushDelay of silence.
type deduplicator struct {
	mu         sync.Mutex
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
	emit       func(msg string)
}

func (d *deduplicator) flush() {
	if d.count == 0 {
		return
	}
	msg := d.lastMsg
	if d.count > 1 {
		msg = fmt.Sprintf("%s (%d)", d.lastMsg, d.count)
	}
	if d.emit != nil {
		d.emit(msg)
	} else {
		slog.Info(msg)
	}
	d.count = 0
	d.lastMsg = ""
}

func (d *deduplicator) schedule() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

// Dedup logs at info level through the default slog logger, merging bursts
// of the same message such as repeated cache hits.
func Dedup(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	dedup.mu.Lock()
	defer dedup.mu.Unlock()

	if msg == dedup.lastMsg {
		dedup.count++
		dedup.schedule()
		return
	}

	dedup.flush()
	dedup.lastMsg = msg
	dedup.count = 1
	dedup.schedule()
}

// Flush writes any pending deduplicated message immediately.
func Flush() {
	dedup.mu.Lock()
	defer dedup.mu.Unlock()
	if dedup.timer != nil {
		dedup.timer.Stop()
	}
	dedup.flush()
}
