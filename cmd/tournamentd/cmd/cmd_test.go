package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-tournaments/internal/config"
	"casino-tournaments/internal/model"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", config.DriverMemory)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", t.TempDir()))
	err := root.Execute()
	return out.String(), err
}

func TestSeed(t *testing.T) {
	out, err := run(t, "seed", "--name", "Night Slots", "--game", "slots", "--prize-pool", "250.5", "--max-participants", "10")
	require.NoError(t, err)

	var tr model.Tournament
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	assert.Equal(t, "Night Slots", tr.Name)
	assert.Equal(t, "slots", tr.GameType)
	assert.Equal(t, model.StatusUpcoming, tr.Status)
	assert.True(t, tr.PrizePool.Equal(decimal.RequireFromString("250.5")))
	require.NotNil(t, tr.MaxParticipants)
	assert.Equal(t, 10, *tr.MaxParticipants)
	assert.True(t, tr.StartTime.Add(time.Hour).Equal(tr.EndTime))
}

func TestSeed_RequiresName(t *testing.T) {
	_, err := run(t, "seed")
	assert.Error(t, err)
}

func TestSeed_RejectsUnknownGame(t *testing.T) {
	_, err := run(t, "seed", "--name", "x", "--game", "poker")
	assert.Error(t, err)
}

func TestTickAndFinalize_EmptyStore(t *testing.T) {
	out, err := run(t, "tick")
	require.NoError(t, err)
	assert.JSONEq(t, `{"started":[],"ended":[]}`, out)

	out, err = run(t, "finalize")
	require.NoError(t, err)
	assert.JSONEq(t, `{"finalized":[],"skipped":[],"failed":{}}`, out)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestScoringPolicyFromConfig(t *testing.T) {
	policy, err := scoringPolicy(config.ScoringConfig{
		WinMultiplier:   2,
		LossMultiplier:  0,
		GameMultipliers: map[string]float64{"slots": 5},
	})
	require.NoError(t, err)
	assert.True(t, policy.Multiplier("slots", true).Equal(decimal.NewFromInt(5)))
	assert.True(t, policy.Multiplier("dice", true).Equal(decimal.NewFromInt(2)))
	assert.True(t, policy.Multiplier("dice", false).IsZero())

	_, err = scoringPolicy(config.ScoringConfig{WinMultiplier: 2, GameMultipliers: map[string]float64{"poker": 3}})
	assert.Error(t, err)
}

func TestPrizeTableFromConfig(t *testing.T) {
	table, err := prizeTable(config.PrizesConfig{Distribution: []float64{0.5, 0.3, 0.2}, Precision: 6})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Places())

	_, err = prizeTable(config.PrizesConfig{Distribution: []float64{0.7, 0.5}, Precision: 6})
	assert.Error(t, err)
}
