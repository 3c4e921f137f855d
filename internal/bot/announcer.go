// Package bot announces finalized tournament results to Telegram chats.
// The bot runs offline: it only sends and never polls for updates.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-tournaments/internal/config"
	"casino-tournaments/internal/model"
)

const queueSize = 64

// Sender is the part of *tele.Bot the announcer uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Announcer posts the winners of each finalized tournament to the
// configured chats.
type Announcer struct {
	sender Sender
	chats  []int64
	queue  chan *model.FinalizationResult
}

// New creates an Announcer backed by a send-only telebot instance.
func New(cfg config.TelegramConfig) (*Announcer, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		OnError: func(err error, _ tele.Context) {
			log.Error().Err(err).Msg("Telegram bot error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewWithSender(b, cfg.Chats), nil
}

// NewWithSender creates an Announcer that sends through sender.
func NewWithSender(sender Sender, chats []int64) *Announcer {
	cp := make([]int64, len(chats))
	copy(cp, chats)
	return &Announcer{
		sender: sender,
		chats:  cp,
		queue:  make(chan *model.FinalizationResult, queueSize),
	}
}

// Publish queues finalized results for announcement. Other events are ignored.
func (a *Announcer) Publish(evt model.Event) {
	if evt.Type != model.EventTournamentFinalized {
		return
	}
	res, ok := evt.Payload.(*model.FinalizationResult)
	if !ok || res == nil {
		return
	}

	select {
	case a.queue <- res:
	default:
		log.Warn().Str("tournament_id", res.TournamentID).Msg("Announcement queue full, dropping results")
	}
}

// Run sends queued announcements until ctx is cancelled.
func (a *Announcer) Run(ctx context.Context) error {
	log.Info().Int("chats", len(a.chats)).Msg("Telegram announcer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-a.queue:
			a.announce(res)
		}
	}
}

func (a *Announcer) announce(res *model.FinalizationResult) {
	text := FormatResults(res)
	for _, chatID := range a.chats {
		if _, err := a.sender.Send(tele.ChatID(chatID), text); err != nil {
			log.Error().
				Err(err).
				Int64("chat_id", chatID).
				Str("tournament_id", res.TournamentID).
				Msg("Failed to announce tournament results")
			continue
		}
		log.Debug().
			Int64("chat_id", chatID).
			Str("tournament_id", res.TournamentID).
			Msg("Tournament results announced")
	}
}

var medals = []string{"🥇", "🥈", "🥉"}

// FormatResults renders the winners message.
func FormatResults(res *model.FinalizationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 %s has ended\n", displayName(res))
	fmt.Fprintf(&sb, "Prize pool: %s USDC · %d players\n", res.PrizePool.StringFixed(2), res.EntryCount)

	if len(res.Results) == 0 {
		sb.WriteString("\nNo entries, no prizes awarded.")
		return sb.String()
	}

	sb.WriteString("\n")
	for _, r := range res.Results {
		place := fmt.Sprintf("#%d", r.Rank)
		if r.Rank >= 1 && r.Rank <= len(medals) {
			place = medals[r.Rank-1]
		}
		fmt.Fprintf(&sb, "%s %s  score %s  prize %s USDC\n",
			place, playerName(r), r.FinalScore.StringFixed(2), r.PrizeAmount.String())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func displayName(res *model.FinalizationResult) string {
	if res.TournamentName != "" {
		return res.TournamentName
	}
	return "Tournament " + res.TournamentID
}

// playerName prefers the username and falls back to a shortened wallet.
func playerName(r model.Result) string {
	if r.Username != "" {
		return r.Username
	}
	w := r.WalletAddress
	if len(w) > 10 {
		return w[:6] + "…" + w[len(w)-4:]
	}
	return w
}
