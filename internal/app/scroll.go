package app

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

const scrollFPS = 60

// scrollTickMsg advances the scroll animation by one frame. Ticks from an
// earlier animation carry a stale gen and are dropped.
type scrollTickMsg struct{ gen int }

// scroller eases the chat viewport toward its newest line with a critically
// damped spring.
type scroller struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
	active bool
	gen    int
}

func newScroller() scroller {
	return scroller{spring: harmonica.NewSpring(harmonica.FPS(scrollFPS), 8.0, 1.0)}
}

// start aims the animation at target from the current offset. It returns the
// tick command when the animation was idle.
func (s *scroller) start(from, target int) tea.Cmd {
	s.target = float64(target)
	if s.active {
		return nil
	}
	s.pos = float64(from)
	s.vel = 0
	s.active = true
	s.gen++
	return scrollTick(s.gen)
}

// current reports whether tick belongs to the running animation.
func (s *scroller) current(tick scrollTickMsg) bool {
	return s.active && tick.gen == s.gen
}

// step advances one frame and returns the offset to show and whether the
// animation has settled.
func (s *scroller) step() (int, bool) {
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, s.target)
	if math.Abs(s.target-s.pos) < 0.5 && math.Abs(s.vel) < 0.5 {
		s.pos = s.target
		s.vel = 0
		s.active = false
		return int(s.target), true
	}
	return int(math.Round(s.pos)), false
}

func (s *scroller) stop() {
	s.active = false
	s.vel = 0
}

func scrollTick(gen int) tea.Cmd {
	return tea.Tick(time.Second/scrollFPS, func(time.Time) tea.Msg {
		return scrollTickMsg{gen: gen}
	})
}
