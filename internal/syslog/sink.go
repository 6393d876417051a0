// Package syslog is the process log sink. Every record is kept in a bounded
// in-memory ring, for display and inspection, and forwarded to the next
// slog handler (stderr text or a JSON file).
package syslog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries is the ring size used when none is configured.
const DefaultMaxEntries = 2000

// Entry is one recorded log line.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   string
}

// String renders the entry on one line.
func (e Entry) String() string {
	s := e.Time.Format(time.DateTime) + " " + e.Level.String() + " " + e.Message
	if e.Attrs != "" {
		s += " " + e.Attrs
	}
	return s
}

type ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func (r *ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

// Sink is a slog.Handler that records entries before delegating.
type Sink struct {
	level  slog.Leveler
	next   slog.Handler
	store  *ring
	attrs  []slog.Attr
	prefix string
}

// NewSink records entries at or above level and forwards them to next,
// which may be nil. max bounds the ring.
func NewSink(level slog.Leveler, next slog.Handler, max int) *Sink {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &Sink{
		level: level,
		next:  next,
		store: &ring{entries: make([]Entry, max)},
	}
}

// Enabled implements slog.Handler.
func (s *Sink) Enabled(_ context.Context, l slog.Level) bool {
	return l >= s.level.Level()
}

// Handle implements slog.Handler.
func (s *Sink) Handle(ctx context.Context, r slog.Record) error {
	var parts []string
	for _, a := range s.attrs {
		parts = appendAttr(parts, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = appendAttr(parts, s.prefix, a)
		return true
	})
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	s.store.add(Entry{Time: t, Level: r.Level, Message: r.Message, Attrs: strings.Join(parts, " ")})

	if s.next != nil && s.next.Enabled(ctx, r.Level) {
		return s.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (s *Sink) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *s
	c.attrs = make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	c.attrs = append(c.attrs, s.attrs...)
	for _, a := range attrs {
		if s.prefix != "" {
			a.Key = s.prefix + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	if s.next != nil {
		c.next = s.next.WithAttrs(attrs)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (s *Sink) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	c := *s
	c.prefix = s.prefix + name + "."
	if s.next != nil {
		c.next = s.next.WithGroup(name)
	}
	return &c
}

// Entries returns the recorded entries, oldest first.
func (s *Sink) Entries() []Entry {
	return s.store.snapshot()
}

func appendAttr(parts []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return parts
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			parts = appendAttr(parts, prefix+a.Key+".", g)
		}
		return parts
	}
	return append(parts, fmt.Sprintf("%s%s=%v", prefix, a.Key, a.Value.Any()))
}
