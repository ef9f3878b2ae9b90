package press

import (
	"sort"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/log"
)

// Mapping holds the per-tier command code tables of one control surface.
type Mapping struct {
	Scroll   map[Code]core.Action
	Short    map[Code]core.Action
	Long     map[Code]core.Action
	Extended map[Code]core.Action
}

// Table returns the map of tier t.
func (m Mapping) Table(t Tier) map[Code]core.Action {
	switch t {
	case TierScroll:
		return m.Scroll
	case TierShort:
		return m.Short
	case TierLong:
		return m.Long
	case TierExtended:
		return m.Extended
	}
	return nil
}

func (m Mapping) mapped(c Code) bool {
	for _, t := range Tiers {
		if _, ok := m.Table(t)[c]; ok {
			return true
		}
	}
	return false
}

// Thresholds are counted in press-indicator frames, except the cooldowns.
type Thresholds struct {
	Long     int
	Extended int

	// Cooldown is shared by short, long and extended actions of all codes.
	Cooldown time.Duration
	// ScrollCooldown is shared by all scroll codes.
	ScrollCooldown time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Long:           5,
		Extended:       30,
		Cooldown:       200 * time.Millisecond,
		ScrollCooldown: 50 * time.Millisecond,
	}
}

// Event is one classified action.
type Event struct {
	Code   Code
	Tier   Tier
	Action core.Action
}

type pressState struct {
	count         int
	longFired     bool
	extendedFired bool
}

// Classifier turns press and release indicators into tiered actions. It is
// driven from a single goroutine and holds no lock.
type Classifier struct {
	mapping Mapping
	th      Thresholds
	log     log.Logger

	states     map[Code]*pressState
	lastFired  time.Time
	lastScroll time.Time
}

func NewClassifier(name string, m Mapping, th Thresholds) *Classifier {
	return &Classifier{
		mapping: m,
		th:      th,
		log:     log.WithName(name),
		states:  make(map[Code]*pressState),
	}
}

// Press handles one press-indicator frame for code.
func (c *Classifier) Press(code Code, now time.Time) (Event, bool) {
	if a, ok := c.mapping.Scroll[code]; ok {
		if cooling(c.lastScroll, c.th.ScrollCooldown, now) {
			return Event{}, false
		}
		c.lastScroll = now
		return Event{Code: code, Tier: TierScroll, Action: a}, true
	}

	if !c.mapping.mapped(code) {
		c.log.Debug("Ignoring unmapped command code", "code", code)
		return Event{}, false
	}

	st, ok := c.states[code]
	if !ok {
		st = &pressState{}
		c.states[code] = st
	}
	st.count++
	if st.longFired || st.extendedFired {
		return Event{}, false
	}

	// With an extended tier the hold stays undecided until the extended
	// threshold or the release.
	if a, ok := c.mapping.Extended[code]; ok {
		if st.count < c.th.Extended {
			return Event{}, false
		}
		st.extendedFired, st.longFired = true, true
		c.lastFired = now
		return Event{Code: code, Tier: TierExtended, Action: a}, true
	}

	a, ok := c.mapping.Long[code]
	if !ok || st.count < c.th.Long {
		return Event{}, false
	}
	st.longFired = true
	return c.fire(Event{Code: code, Tier: TierLong, Action: a}, now)
}

// Release handles the release-indicator frame for code and resets its state.
func (c *Classifier) Release(code Code, now time.Time) (Event, bool) {
	st, ok := c.states[code]
	if !ok {
		return Event{}, false
	}
	delete(c.states, code)

	if st.longFired || st.extendedFired {
		return Event{}, false
	}

	_, extended := c.mapping.Extended[code]
	if a, ok := c.mapping.Long[code]; ok && extended && st.count >= c.th.Long {
		return c.fire(Event{Code: code, Tier: TierLong, Action: a}, now)
	}
	if a, ok := c.mapping.Short[code]; ok {
		return c.fire(Event{Code: code, Tier: TierShort, Action: a}, now)
	}
	return Event{}, false
}

// ReleaseAll releases every held code in code order.
func (c *Classifier) ReleaseAll(now time.Time) []Event {
	codes := make([]Code, 0, len(c.states))
	for code := range c.states {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	var events []Event
	for _, code := range codes {
		if ev, ok := c.Release(code, now); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Reset drops every hold in progress without firing.
func (c *Classifier) Reset() {
	if len(c.states) > 0 {
		c.log.Debug("Discarding held command codes", "held", len(c.states))
	}
	clear(c.states)
}

// IsScroll reports whether code is mapped on the scroll tier.
func (c *Classifier) IsScroll(code Code) bool {
	_, ok := c.mapping.Scroll[code]
	return ok
}

// Held reports the number of codes currently pressed.
func (c *Classifier) Held() int {
	return len(c.states)
}

func (c *Classifier) fire(ev Event, now time.Time) (Event, bool) {
	if cooling(c.lastFired, c.th.Cooldown, now) {
		c.log.Debug("Action suppressed by cooldown", "code", ev.Code, "tier", ev.Tier, "action", ev.Action)
		return Event{}, false
	}
	c.lastFired = now
	return ev, true
}

func cooling(last time.Time, window time.Duration, now time.Time) bool {
	return !last.IsZero() && now.Sub(last) < window
}
