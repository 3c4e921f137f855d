package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"casino-tournaments/internal/model"
)

// maxTxHashLen bounds the settlement identifier stored per round.
const maxTxHashLen = 128

// Settlement is a settled round as reported by the game contract relay.
type Settlement struct {
	TournamentID  string
	WalletAddress string
	Game          string
	BetAmount     decimal.Decimal
	Won           bool
	TxHash        string
}

// DecodeError reports a missing or malformed settlement field.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "invalid settlement: " + e.Reason
	}
	return fmt.Sprintf("invalid settlement field %q: %s", e.Field, e.Reason)
}

// DecodeSettlement parses a settlement report. Every required field must be
// present with the right JSON type; there are no defaults for missing data.
func DecodeSettlement(data []byte) (*Settlement, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&fields); err != nil {
		return nil, &DecodeError{Reason: "body must be a JSON object"}
	}
	if fields == nil {
		return nil, &DecodeError{Reason: "body must be a JSON object"}
	}
	if dec.More() {
		return nil, &DecodeError{Reason: "body must contain a single JSON object"}
	}

	known := map[string]bool{
		"tournament_id": true, "wallet_address": true, "game": true,
		"bet_amount": true, "won": true, "tx_hash": true,
	}
	var unknown []string
	for name := range fields {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &DecodeError{Field: unknown[0], Reason: "unknown field"}
	}

	var s Settlement
	var err error

	if s.TournamentID, err = requiredString(fields, "tournament_id"); err != nil {
		return nil, err
	}
	if s.WalletAddress, err = requiredString(fields, "wallet_address"); err != nil {
		return nil, err
	}
	if s.Game, err = optionalString(fields, "game"); err != nil {
		return nil, err
	}
	if s.TxHash, err = optionalString(fields, "tx_hash"); err != nil {
		return nil, err
	}
	if len(s.TxHash) > maxTxHashLen {
		return nil, &DecodeError{Field: "tx_hash", Reason: fmt.Sprintf("longer than %d characters", maxTxHashLen)}
	}

	raw, ok := fields["bet_amount"]
	if !ok || isNull(raw) {
		return nil, &DecodeError{Field: "bet_amount", Reason: "required"}
	}
	if err := s.BetAmount.UnmarshalJSON(raw); err != nil {
		return nil, &DecodeError{Field: "bet_amount", Reason: "must be a decimal number or string"}
	}

	raw, ok = fields["won"]
	if !ok || isNull(raw) {
		return nil, &DecodeError{Field: "won", Reason: "required"}
	}
	if err := json.Unmarshal(raw, &s.Won); err != nil {
		return nil, &DecodeError{Field: "won", Reason: "must be a boolean"}
	}

	return &s, nil
}

// Round converts the settlement into the ledger's input.
func (s *Settlement) Round() model.Round {
	return model.Round{
		TournamentID:  s.TournamentID,
		WalletAddress: s.WalletAddress,
		Game:          s.Game,
		BetAmount:     s.BetAmount,
		Won:           s.Won,
		RoundID:       s.TxHash,
	}
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", &DecodeError{Field: name, Reason: "required"}
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &DecodeError{Field: name, Reason: "must be a string"}
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &DecodeError{Field: name, Reason: "must not be empty"}
	}
	return v, nil
}

func optionalString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &DecodeError{Field: name, Reason: "must be a string"}
	}
	return strings.TrimSpace(v), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
