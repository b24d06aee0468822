package extract

import (
	"github.com/rs/zerolog"

	"github.com/octobees/tablemate/internal/entity"
)

// Guard shields callers from a misbehaving extractor: a panic inside any
// capability is logged and reported as "no value".
type Guard struct {
	inner  Extractor
	logger zerolog.Logger
}

// NewGuard wraps an extractor.
func NewGuard(inner Extractor, logger zerolog.Logger) *Guard {
	return &Guard{inner: inner, logger: logger}
}

var _ Extractor = (*Guard)(nil)

func (g *Guard) absorb(capability string) {
	if rec := recover(); rec != nil {
		g.logger.Warn().
			Str("capability", capability).
			Interface("panic", rec).
			Msg("extractor failed, treating as no value")
	}
}

// Guests implements Extractor.
func (g *Guard) Guests(text string) (n int, ok bool) {
	defer g.absorb("guests")
	return g.inner.Guests(text)
}

// Time implements Extractor.
func (g *Guard) Time(text string) (value string, ok bool) {
	defer g.absorb("time")
	return g.inner.Time(text)
}

// City implements Extractor.
func (g *Guard) City(text string) (value string, ok bool) {
	defer g.absorb("city")
	return g.inner.City(text)
}

// Cuisine implements Extractor.
func (g *Guard) Cuisine(text string) (value string, ok bool) {
	defer g.absorb("cuisine")
	return g.inner.Cuisine(text)
}

// YesNo implements Extractor.
func (g *Guard) YesNo(text string) (value bool, ok bool) {
	defer g.absorb("yes_no")
	return g.inner.YesNo(text)
}

// AccessibilityCues implements Extractor.
func (g *Guard) AccessibilityCues(text string) (cues map[entity.AccessFlag]bool) {
	defer g.absorb("accessibility")
	return g.inner.AccessibilityCues(text)
}
