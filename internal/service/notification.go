package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"climatemarket/internal/events"
	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"

	"gopkg.in/telebot.v3"
)

// Sender is the part of *telebot.Bot used for notifications
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// MarketLookup returns the current view of a market
type MarketLookup func(id uint64) (ledger.Market, error)

// NotificationService posts market activity to the public Telegram channel
type NotificationService struct {
	bot       Sender
	mu        sync.Mutex
	channelID string
	markets   MarketLookup
}

// NewNotificationService creates a new notification service. An empty
// channelID disables it.
func NewNotificationService(bot Sender, channelID string, markets MarketLookup) *NotificationService {
	return &NotificationService{
		bot:       bot,
		channelID: channelID,
		markets:   markets,
	}
}

// formatBalance formats an amount of climate tokens
func formatBalance(balance uint64) string {
	return fmt.Sprintf("%d CLT", balance)
}

// Publish broadcasts the market events the channel cares about and ignores
// the rest.
func (s *NotificationService) Publish(_ context.Context, e events.Event) error {
	if s.channelID == "" {
		return nil
	}

	var message string
	switch e.Function {
	case ledger.FnCreateMarket:
		var id uint64
		if err := json.Unmarshal(e.Value, &id); err != nil {
			return fmt.Errorf("decode market id: %w", err)
		}
		m, err := s.markets(id)
		if err != nil {
			return err
		}
		message = newMarketMessage(m)
	case ledger.FnResolveMarket:
		m, err := s.marketFromArgs(e)
		if err != nil {
			return err
		}
		message = resolutionMessage(m)
	case ledger.FnClaimWinnings, ledger.FnClaimRefund:
		id, err := firstUintArg(e.Args)
		if err != nil {
			return err
		}
		var amount uint64
		if err := json.Unmarshal(e.Value, &amount); err != nil {
			return fmt.Errorf("decode payout: %w", err)
		}
		message = claimMessage(e.Function, id, e.Caller, amount)
	default:
		return nil
	}

	return s.send(e.Caller, e.Function, message)
}

// NotifyMarketClosed tells the channel that betting on m has ended
func (s *NotificationService) NotifyMarketClosed(m ledger.Market) error {
	if s.channelID == "" {
		return nil
	}
	message := strings.Join([]string{
		"⏰ " + bold("Betting Closed"),
		"",
		bold(fmt.Sprintf("#%d", m.ID)) + " " + escapeMarkdown(truncateString(m.Description, 80)),
		"",
		escapeMarkdown(fmt.Sprintf("💰 Total Pool: %s", formatBalance(m.TotalStake))),
		escapeMarkdown("Waiting for the creator to resolve."),
	}, "\n")
	return s.send(m.Creator, "market_closed", message)
}

func (s *NotificationService) send(principal, action, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.bot.Send(s.getChannelRecipient(), message, &telebot.SendOptions{
		ParseMode: telebot.ModeMarkdownV2,
	})
	if err != nil {
		logger.Debug(principal, "broadcast_error", fmt.Sprintf("channel=%s action=%s error=%v", s.channelID, action, err))
		return fmt.Errorf("telegram send: %w", err)
	}
	logger.Debug(principal, "broadcast_sent", fmt.Sprintf("channel=%s action=%s", s.channelID, action))
	return nil
}

func (s *NotificationService) marketFromArgs(e events.Event) (ledger.Market, error) {
	id, err := firstUintArg(e.Args)
	if err != nil {
		return ledger.Market{}, err
	}
	return s.markets(id)
}

func firstUintArg(raw json.RawMessage) (uint64, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(raw, &args); err != nil || len(args) == 0 {
		return 0, fmt.Errorf("decode args %s: %w", raw, ledger.ErrInvalidArguments)
	}
	var id uint64
	if err := json.Unmarshal(args[0], &id); err != nil {
		return 0, fmt.Errorf("decode market id: %w", err)
	}
	return id, nil
}

func newMarketMessage(m ledger.Market) string {
	return strings.Join([]string{
		"🆕 " + bold("New Market Created"),
		"",
		bold(fmt.Sprintf("#%d", m.ID)) + " " + escapeMarkdown(m.Description),
		"",
		escapeMarkdown("🎲 Options: " + strings.Join(m.Options, " / ")),
		escapeMarkdown(fmt.Sprintf("⏰ Betting closes at block %d", m.EndBlock)),
		"",
		escapeMarkdown("🎯 Place your bets!"),
	}, "\n")
}

func resolutionMessage(m ledger.Market) string {
	outcome := "?"
	if m.WinningOption != nil && int(*m.WinningOption) < len(m.Options) {
		outcome = m.Options[*m.WinningOption]
	}
	return strings.Join([]string{
		"🏁 " + bold("Market Resolved"),
		"",
		bold(fmt.Sprintf("#%d", m.ID)) + " " + escapeMarkdown(truncateString(m.Description, 80)),
		"",
		"✅ Outcome: " + bold(outcome),
		escapeMarkdown(fmt.Sprintf("💰 Total Pool: %s", formatBalance(m.TotalStake))),
		"",
		escapeMarkdown("Winners can claim their payout now."),
	}, "\n")
}

func claimMessage(function string, id uint64, caller string, amount uint64) string {
	verb := "won"
	if function == ledger.FnClaimRefund {
		verb = "was refunded"
	}
	return escapeMarkdown(fmt.Sprintf("🏆 %s %s %s on market #%d",
		truncateString(caller, 20), verb, formatBalance(amount), id))
}

// truncateString truncates a string to maxLen and adds ellipsis if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(r[:maxLen-3])) + "..."
}

func bold(s string) string {
	return "*" + escapeMarkdown(s) + "*"
}

// getChannelRecipient returns the appropriate recipient for the configured channel
func (s *NotificationService) getChannelRecipient() telebot.Recipient {
	if strings.HasPrefix(s.channelID, "@") {
		return &telebot.Chat{Username: s.channelID}
	}
	return &telebot.Chat{ID: parseChannelID(s.channelID)}
}

// parseChannelID parses a channel ID string (supports numeric IDs)
func parseChannelID(channelID string) int64 {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"~", `\~`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"{", `\{`,
	"}", `\}`,
	">", `\>`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	"=", `\=`,
	"|", `\|`,
	".", `\.`,
	"!", `\!`,
)

// escapeMarkdown escapes special characters for Telegram MarkdownV2
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
