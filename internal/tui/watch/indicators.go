package watch

import (
	"strings"
	"time"
)

const (
	pulseWidth = 5
	pulseStep  = 2 * time.Second
)

// Heartbeat flips on every UI tick. A frozen glyph means the tick loop stalled.
type Heartbeat struct {
	beat bool
}

func (h *Heartbeat) Beat() { h.beat = !h.beat }

func (h Heartbeat) Glyph() string {
	if h.beat {
		return "⟳"
	}
	return "⟲"
}

// Pulse lights up on each stream event and loses one dot every pulseStep.
type Pulse struct {
	last time.Time
	now  func() time.Time
}

func NewPulse() Pulse {
	return Pulse{now: time.Now}
}

func (p *Pulse) Hit() { p.last = p.now() }

// LastEvent is the zero time until the first event.
func (p Pulse) LastEvent() time.Time { return p.last }

// Level is the number of lit dots, from pulseWidth down to zero.
func (p Pulse) Level() int {
	if p.last.IsZero() {
		return 0
	}
	lit := pulseWidth - int(p.now().Sub(p.last)/pulseStep)
	return max(0, min(pulseWidth, lit))
}

func (p Pulse) Render(theme Theme) string {
	level := p.Level()
	return theme.PulseOn.Render(strings.Repeat("●", level)) +
		theme.PulseOff.Render(strings.Repeat("○", pulseWidth-level))
}
