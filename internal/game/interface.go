// Package game describes the casino games whose settled rounds count toward
// tournament scores. Game outcomes are produced elsewhere; this package only
// names the games and decodes their settlement reports.
package game

import "github.com/shopspring/decimal"

// Game is a casino game that can feed rounds into a tournament.
type Game interface {
	// Tag returns the identifier used in settlements and tournament game_type (e.g., "dice").
	Tag() string

	// Name returns the game's display name (e.g., "Video Poker").
	Name() string

	// WinMultiplier returns the score multiplier applied to the bet of a winning round.
	WinMultiplier() decimal.Decimal
}

// Definition is the static description of a game.
type Definition struct {
	tag        string
	name       string
	multiplier decimal.Decimal
}

// NewDefinition creates a game definition.
func NewDefinition(tag, name string, winMultiplier decimal.Decimal) *Definition {
	return &Definition{tag: tag, name: name, multiplier: winMultiplier}
}

// Tag implements Game.
func (d *Definition) Tag() string { return d.tag }

// Name implements Game.
func (d *Definition) Name() string { return d.name }

// WinMultiplier implements Game.
func (d *Definition) WinMultiplier() decimal.Decimal { return d.multiplier }

// builtin lists the games the casino front-end offers.
var builtin = []struct {
	tag  string
	name string
}{
	{"coinflip", "Coin Flip"},
	{"dice", "Dice"},
	{"roulette", "Roulette"},
	{"slots", "Slots"},
	{"plinko", "Plinko"},
	{"mines", "Mines"},
	{"limbo", "Limbo"},
	{"range", "Range"},
	{"rps", "Rock Paper Scissors"},
	{"baccarat", "Baccarat"},
	{"videopoker", "Video Poker"},
	{"fishprawncrab", "Fish Prawn Crab"},
}
