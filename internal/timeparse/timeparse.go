// Package timeparse turns organizer datetime input into absolute UTC times and
// formats stored times for display.
package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/olebedev/when/rules/ru"
)

// DisplayLayout is the layout used for every datetime shown to users
const DisplayLayout = "2006-01-02 15:04"

// Empty is shown in place of an unset datetime
const Empty = "—"

// ErrUnrecognized is returned when no supported format matches the input
var ErrUnrecognized = errors.New("unrecognized datetime")

// naiveLayouts carry no offset and are read in the parser's location
var naiveLayouts = []string{
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// zonedLayouts carry their own offset
var zonedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// numericDate matches date-like input such as "2025-10-5" or "31.02.2025"; once the
// explicit layouts have failed such input is a typo, never natural language
var numericDate = regexp.MustCompile(`\d+\s*[-./]\s*\d+\s*[-./]\s*\d+`)

// Parser parses datetime input relative to a location
type Parser struct {
	loc     *time.Location
	natural *when.Parser
}

// New creates a parser that interprets naive input in loc
func New(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(ru.All...)
	w.Add(common.All...)
	return &Parser{loc: loc, natural: w}
}

// Parse converts input to UTC. Accepted: "YYYY-MM-DD HH:MM", "DD.MM.YYYY HH:MM",
// ISO-8601 with or without seconds and offset, and natural language relative to now
// ("tomorrow 5 pm", "завтра в 18:00").
func (p *Parser) Parse(input string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(strings.ReplaceAll(input, "\u00a0", " "))
	if s == "" {
		return time.Time{}, ErrUnrecognized
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if numericDate.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, input)
	}

	lowered := strings.ToLower(s)
	r, err := p.natural.Parse(lowered, now.In(p.loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognized, input, err)
	}
	// Partial matches would turn "5 pm sharp-ish" or a mistyped date into some other time
	if r == nil || r.Index != 0 || len(r.Text) != len(lowered) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, input)
	}
	return r.Time.Truncate(time.Minute).UTC(), nil
}

// ParseOptional parses input, returning nil for blank input
func (p *Parser) ParseOptional(input string, now time.Time) (*time.Time, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	t, err := p.Parse(input, now)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Format renders t in the parser's location, or Empty when t is nil
func (p *Parser) Format(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Empty
	}
	return t.In(p.loc).Format(DisplayLayout)
}
