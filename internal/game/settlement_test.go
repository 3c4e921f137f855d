package game

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const validSettlement = `{
	"tournament_id": "6f1c2a43-9f3e-4c55-8a7e-2d7a1b0c9e11",
	"wallet_address": "0xAbC0000000000000000000000000000000000001",
	"game": "dice",
	"bet_amount": "12.5",
	"won": true,
	"tx_hash": "0xdeadbeef"
}`

func TestDecodeSettlement_Valid(t *testing.T) {
	s, err := DecodeSettlement([]byte(validSettlement))
	require.NoError(t, err)

	assert.Equal(t, "6f1c2a43-9f3e-4c55-8a7e-2d7a1b0c9e11", s.TournamentID)
	assert.Equal(t, "0xAbC0000000000000000000000000000000000001", s.WalletAddress)
	assert.Equal(t, "dice", s.Game)
	assert.True(t, s.BetAmount.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, s.Won)
	assert.Equal(t, "0xdeadbeef", s.TxHash)

	round := s.Round()
	assert.Equal(t, s.TxHash, round.RoundID)
	assert.True(t, round.BetAmount.Equal(s.BetAmount))
}

func TestDecodeSettlement_NumericBet(t *testing.T) {
	s, err := DecodeSettlement([]byte(`{"tournament_id":"t","wallet_address":"w","bet_amount":100,"won":false}`))
	require.NoError(t, err)
	assert.True(t, s.BetAmount.Equal(decimal.NewFromInt(100)))
	assert.False(t, s.Won)
	assert.Empty(t, s.Game)
	assert.Empty(t, s.TxHash)
}

func TestDecodeSettlement_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not an object", `[1,2]`, ""},
		{"null body", `null`, ""},
		{"garbage", `{"won":`, ""},
		{"missing won", `{"tournament_id":"t","wallet_address":"w","bet_amount":"1"}`, "won"},
		{"null won", `{"tournament_id":"t","wallet_address":"w","bet_amount":"1","won":null}`, "won"},
		{"string won", `{"tournament_id":"t","wallet_address":"w","bet_amount":"1","won":"true"}`, "won"},
		{"missing bet", `{"tournament_id":"t","wallet_address":"w","won":true}`, "bet_amount"},
		{"bool bet", `{"tournament_id":"t","wallet_address":"w","bet_amount":true,"won":true}`, "bet_amount"},
		{"text bet", `{"tournament_id":"t","wallet_address":"w","bet_amount":"lots","won":true}`, "bet_amount"},
		{"missing tournament", `{"wallet_address":"w","bet_amount":"1","won":true}`, "tournament_id"},
		{"empty wallet", `{"tournament_id":"t","wallet_address":"  ","bet_amount":"1","won":true}`, "wallet_address"},
		{"numeric game", `{"tournament_id":"t","wallet_address":"w","bet_amount":"1","won":true,"game":7}`, "game"},
		{"unknown field", `{"tournament_id":"t","wallet_address":"w","bet_amount":"1","won":true,"payout":"2"}`, "payout"},
		{"trailing data", `{"tournament_id":"t","wallet_address":"w","bet_amount":"1","won":true} {}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSettlement([]byte(tt.body))
			require.Error(t, err)

			var de *DecodeError
			require.True(t, errors.As(err, &de), "expected *DecodeError, got %T", err)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

// TestDecodeSettlementNeverPanics checks that arbitrary input yields either a
// settlement or a DecodeError.
func TestDecodeSettlementNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		s, err := DecodeSettlement(data)
		if err != nil {
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			return
		}
		if s == nil {
			t.Fatal("nil settlement without error")
		}
	})
}

func TestBuiltinRegistry(t *testing.T) {
	r, err := NewBuiltinRegistry(decimal.NewFromInt(2), map[string]decimal.Decimal{
		"plinko": decimal.RequireFromString("3.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, 12, r.Count())
	assert.Contains(t, r.Tags(), "fishprawncrab")

	dice, ok := r.Get("dice")
	require.True(t, ok)
	assert.Equal(t, "Dice", dice.Name())
	assert.True(t, dice.WinMultiplier().Equal(decimal.NewFromInt(2)))

	plinko, ok := r.Get("plinko")
	require.True(t, ok)
	assert.True(t, plinko.WinMultiplier().Equal(decimal.RequireFromString("3.5")))

	_, ok = r.Get("blackjack")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 12)
	assert.Equal(t, "baccarat", list[0].Tag())
}

func TestBuiltinRegistry_UnknownOverride(t *testing.T) {
	_, err := NewBuiltinRegistry(decimal.NewFromInt(2), map[string]decimal.Decimal{
		"blackjack": decimal.NewFromInt(3),
	})
	assert.Error(t, err)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(NewDefinition("", "Nameless", decimal.NewFromInt(2))))
	assert.Error(t, r.Register(NewDefinition("neg", "Negative", decimal.NewFromInt(-1))))
	assert.NoError(t, r.Register(NewDefinition("crash", "Crash", decimal.NewFromInt(2))))
	assert.Equal(t, 1, r.Count())
}
