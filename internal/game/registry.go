package game

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Registry manages game registration and lookup by tag.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates an empty game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Game),
	}
}

// NewBuiltinRegistry registers every built-in game with winMultiplier, then
// applies per-tag overrides. Overrides for unknown tags are rejected so that
// a typo in configuration does not silently fall back to the default.
func NewBuiltinRegistry(winMultiplier decimal.Decimal, overrides map[string]decimal.Decimal) (*Registry, error) {
	r := NewRegistry()
	for _, b := range builtin {
		m := winMultiplier
		if o, ok := overrides[b.tag]; ok {
			m = o
		}
		if err := r.Register(NewDefinition(b.tag, b.name, m)); err != nil {
			return nil, err
		}
	}
	for tag := range overrides {
		if _, ok := r.Get(tag); !ok {
			return nil, fmt.Errorf("multiplier override for unknown game %q", tag)
		}
	}
	return r, nil
}

// Register adds a game to the registry.
// If a game with the same tag already exists, it will be replaced.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Tag() == "" {
		return fmt.Errorf("game tag cannot be empty")
	}
	if g.WinMultiplier().IsNegative() {
		return fmt.Errorf("game %q has a negative multiplier", g.Tag())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Tag()] = g
	return nil
}

// Get retrieves a game by its tag.
func (r *Registry) Get(tag string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[tag]
	return g, ok
}

// List returns all registered games ordered by tag.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Tag() < games[j].Tag() })
	return games
}

// Tags returns all registered game tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.games))
	for tag := range r.games {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
