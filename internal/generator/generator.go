// Package generator builds synthetic typing sessions.
package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/verte-zerg/keymood/internal/model"
)

// Profile describes the timing behaviour of a simulated typist.
type Profile struct {
	Name        string
	IntervalMs  float64 // mean press-to-press gap inside a word
	JitterMs    float64 // uniform +/- spread around IntervalMs
	HoldMs      float64 // key hold time before release
	PauseChance float64 // probability of a pause before a word
	PauseMinMs  float64
	PauseMaxMs  float64
}

var profiles = map[string]Profile{
	"fast":     {Name: "fast", IntervalMs: 110, JitterMs: 30, HoldMs: 60, PauseChance: 0.05, PauseMinMs: 320, PauseMaxMs: 450},
	"steady":   {Name: "steady", IntervalMs: 170, JitterMs: 40, HoldMs: 80, PauseChance: 0.15, PauseMinMs: 350, PauseMaxMs: 600},
	"hesitant": {Name: "hesitant", IntervalMs: 240, JitterMs: 60, HoldMs: 100, PauseChance: 0.6, PauseMinMs: 800, PauseMaxMs: 2000},
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// Session is a synthetic event log and the text it types.
type Session struct {
	Text   string
	Events []model.KeyEvent
}

// Generator produces synthetic sessions.
type Generator struct {
	faker *gofakeit.Faker
}

// New returns a Generator with a fixed seed; equal seeds give equal sessions.
func New(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate types count random words with the given profile. Every key is
// released before the next one is pressed, so the log is time ordered.
func (g *Generator) Generate(p Profile, count int) Session {
	words := make([]string, 0, count)
	for i := 0; i < count; i++ {
		// Some faker words contain spaces; keep one token per word.
		word := strings.Join(strings.Fields(g.faker.Word()), "")
		if word == "" {
			word = "a"
		}
		words = append(words, strings.ToLower(word))
	}
	text := strings.Join(words, " ")

	events := make([]model.KeyEvent, 0, 2*len(text))
	now := 0.0
	wordStart := true
	for _, r := range text {
		if wordStart && now > 0 && g.faker.Float64() < p.PauseChance {
			now += g.faker.Float64Range(p.PauseMinMs, p.PauseMaxMs)
		}
		gap := p.IntervalMs
		if p.JitterMs > 0 {
			gap += g.faker.Float64Range(-p.JitterMs, p.JitterMs)
		}
		if gap < 1 {
			gap = 1
		}
		hold := p.HoldMs
		if hold >= gap {
			hold = gap * 0.8
		}

		key := string(r)
		events = append(events,
			model.KeyEvent{Kind: model.KeyPress, Key: key, TimeMs: now},
			model.KeyEvent{Kind: model.KeyRelease, Key: key, TimeMs: now + hold},
		)
		now += gap
		wordStart = r == ' '
	}
	return Session{Text: text, Events: events}
}
