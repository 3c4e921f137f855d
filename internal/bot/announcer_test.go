package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"casino-tournaments/internal/model"
)

type sent struct {
	chat string
	text string
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sent
	fails map[string]bool
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[to.Recipient()] {
		return nil, errors.New("chat not found")
	}
	text, _ := what.(string)
	f.sent = append(f.sent, sent{chat: to.Recipient(), text: text})
	return &tele.Message{}, nil
}

func (f *fakeSender) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sent, len(f.sent))
	copy(out, f.sent)
	return out
}

func sampleResult() *model.FinalizationResult {
	return &model.FinalizationResult{
		TournamentID:   "9b2f0c1e-4d8a-4f5e-9c3a-1b2c3d4e5f60",
		TournamentName: "Weekend Dice",
		PrizePool:      decimal.NewFromInt(1000),
		EntryCount:     4,
		Results: []model.Result{
			{Rank: 1, Username: "alice", WalletAddress: "0x00000000000000000000000000000000000000aa",
				FinalScore: decimal.NewFromInt(120), PrizeAmount: decimal.NewFromInt(500)},
			{Rank: 2, WalletAddress: "0x1234567890abcdef1234567890abcdef12345678",
				FinalScore: decimal.NewFromInt(100), PrizeAmount: decimal.NewFromInt(300)},
			{Rank: 3, Username: "carol", WalletAddress: "0x00000000000000000000000000000000000000cc",
				FinalScore: decimal.NewFromInt(80), PrizeAmount: decimal.NewFromInt(200)},
		},
	}
}

func TestFormatResults(t *testing.T) {
	text := FormatResults(sampleResult())

	assert.Contains(t, text, "Weekend Dice has ended")
	assert.Contains(t, text, "Prize pool: 1000.00 USDC · 4 players")
	assert.Contains(t, text, "🥇 alice  score 120.00  prize 500 USDC")
	assert.Contains(t, text, "🥈 0x1234…5678")
	assert.Contains(t, text, "🥉 carol")
}

func TestFormatResults_NoEntries(t *testing.T) {
	text := FormatResults(&model.FinalizationResult{TournamentID: "t-1", PrizePool: decimal.NewFromInt(50)})
	assert.Contains(t, text, "Tournament t-1 has ended")
	assert.Contains(t, text, "No entries")
}

func TestAnnouncer_SendsFinalizedResults(t *testing.T) {
	sender := &fakeSender{fails: map[string]bool{"-200": true}}
	a := NewWithSender(sender, []int64{-100, -200, -300})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	a.Publish(model.Event{Type: model.EventEntryUpdated, TournamentID: "t-1"})
	a.Publish(model.Event{Type: model.EventTournamentFinalized, TournamentID: "t-1", Payload: "not a result"})
	a.Publish(model.Event{Type: model.EventTournamentFinalized, TournamentID: sampleResult().TournamentID, Payload: sampleResult()})

	require.Eventually(t, func() bool { return len(sender.messages()) == 2 }, time.Second, 10*time.Millisecond)

	msgs := sender.messages()
	assert.Equal(t, "-100", msgs[0].chat)
	assert.Equal(t, "-300", msgs[1].chat)
	assert.Contains(t, msgs[0].text, "Weekend Dice")
}

func TestAnnouncer_PublishNeverBlocks(t *testing.T) {
	a := NewWithSender(&fakeSender{}, []int64{1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < queueSize*2; i++ {
			a.Publish(model.Event{Type: model.EventTournamentFinalized, Payload: sampleResult()})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running worker")
	}
}
