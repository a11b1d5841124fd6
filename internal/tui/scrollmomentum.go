package tui

import "time"

// ScrollDirection is the direction of a single scroll input.
type ScrollDirection int

const (
	ScrollUp ScrollDirection = iota
	ScrollDown
)

const (
	momentumTimeout           = 200 * time.Millisecond
	ignoreEventsUnder         = 50 * time.Millisecond
	accelerationFactor        = 1.2
	initialMomentum           = 1.0
	standardMaxMomentum       = 25.0
	sustainedMaxMomentum      = 100.0
	sustainedScrollThreshold  = int(2000 / 50) // ~2s of sustained scrolling at the ignore-window cadence
)

// ScrollMomentum accelerates the number of lines a repeated scroll input
// moves, the same way a trackpad or mouse wheel builds speed the longer
// you hold it: scrolls within momentumTimeout of the last one compound
// exponentially, a direction change or a timeout resets to the initial
// single-line step.
type ScrollMomentum struct {
	lastScrollTime time.Time
	momentum       float64
	lastDirection  *ScrollDirection
	scrollCount    int
}

// NewScrollMomentum returns a fresh tracker at rest.
func NewScrollMomentum() *ScrollMomentum {
	return &ScrollMomentum{momentum: initialMomentum}
}

// Calculate returns the number of lines to scroll for this input, given
// its direction and how long ago the previous scroll input arrived.
func (m *ScrollMomentum) Calculate(direction ScrollDirection) int {
	if m.lastDirection != nil && *m.lastDirection != direction {
		m.momentum = initialMomentum
		m.lastScrollTime = time.Time{}
		m.scrollCount = 0
	}
	m.lastDirection = &direction

	now := time.Now()

	switch {
	case m.lastScrollTime.IsZero():
		m.momentum = initialMomentum
		m.scrollCount = 1

	default:
		elapsed := now.Sub(m.lastScrollTime)
		switch {
		case elapsed < ignoreEventsUnder:
			return 0
		case elapsed < momentumTimeout:
			m.momentum *= accelerationFactor
			m.scrollCount++

			maxMomentum := standardMaxMomentum
			if m.scrollCount > sustainedScrollThreshold {
				maxMomentum = sustainedMaxMomentum
			}
			if m.momentum > maxMomentum {
				m.momentum = maxMomentum
			}
		default:
			m.momentum = initialMomentum
			m.scrollCount = 0
		}
	}

	m.lastScrollTime = now
	return int(m.momentum + 0.5)
}

// Reset returns the tracker to its resting state, e.g. when switching
// modes or panes.
func (m *ScrollMomentum) Reset() {
	m.momentum = initialMomentum
	m.lastScrollTime = time.Time{}
	m.lastDirection = nil
	m.scrollCount = 0
}
