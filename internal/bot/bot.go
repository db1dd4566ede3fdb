package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
	"climatemarket/internal/service"

	"gopkg.in/telebot.v3"
)

const helpText = "📚 Available Commands\n\n" +
	"/balance <principal> - Token balance of a principal\n" +
	"/supply - Total tokens in circulation\n" +
	"/markets - Markets still taking bets\n" +
	"/market <id> - Details of one market\n" +
	"/reading [id] - A climate reading, the latest by default\n" +
	"/block - Current block height\n" +
	"/help - Show this help message"

// NewTelebot creates a long-polling Telegram bot
func NewTelebot(token string) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token: token,
		Poller: &telebot.LongPoller{
			Timeout: 10 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return b, nil
}

// Bot answers read-only ledger queries over Telegram
type Bot struct {
	tb *telebot.Bot
	rt *service.Runtime
}

// New registers the command handlers on tb
func New(tb *telebot.Bot, rt *service.Runtime) *Bot {
	b := &Bot{tb: tb, rt: rt}

	b.handle("/start", func([]string) string { return "Welcome to the Climate Market! 🌦\n\n" + helpText })
	b.handle("/help", func([]string) string { return helpText })
	b.handle("/balance", b.balanceText)
	b.handle("/supply", b.supplyText)
	b.handle("/markets", b.marketsText)
	b.handle("/market", b.marketText)
	b.handle("/reading", b.readingText)
	b.handle("/block", b.blockText)

	return b
}

// Run polls for updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()
	logger.Debug("", "bot_started", "username="+b.tb.Me.Username)
	b.tb.Start()
	return nil
}

func (b *Bot) handle(command string, reply func(args []string) string) {
	b.tb.Handle(command, func(c telebot.Context) error {
		var sender string
		if u := c.Sender(); u != nil {
			sender = strconv.FormatInt(u.ID, 10)
		}
		logger.Debug(sender, "command"+strings.ReplaceAll(command, "/", "_"), strings.Join(c.Args(), " "))
		return c.Send(reply(c.Args()))
	})
}

// formatBalance formats an amount of climate tokens
func formatBalance(balance uint64) string {
	return fmt.Sprintf("%d CLT", balance)
}

func (b *Bot) balanceText(args []string) string {
	if len(args) != 1 || !ledger.ValidPrincipal(args[0]) {
		return "Usage: /balance <principal>"
	}
	var bal uint64
	b.rt.View(func(s *ledger.State) { bal = s.Balance(args[0]) })
	return fmt.Sprintf("💰 %s holds %s", args[0], formatBalance(bal))
}

func (b *Bot) supplyText([]string) string {
	var supply uint64
	b.rt.View(func(s *ledger.State) { supply = s.TotalSupply() })
	return "🪙 Total supply: " + formatBalance(supply)
}

func (b *Bot) blockText([]string) string {
	return fmt.Sprintf("⛓ Block height: %d", b.rt.BlockHeight())
}

func (b *Bot) marketsText([]string) string {
	var lines []string
	b.rt.View(func(s *ledger.State) {
		height := s.BlockHeight()
		for _, m := range s.Markets() {
			if m.Open(height) {
				lines = append(lines, fmt.Sprintf("#%d %s (pool %s, closes at block %d)",
					m.ID, m.Description, formatBalance(m.TotalStake), m.EndBlock))
			}
		}
	})
	if len(lines) == 0 {
		return "No markets are taking bets right now."
	}
	return "📊 Open Markets\n\n" + strings.Join(lines, "\n")
}

func (b *Bot) marketText(args []string) string {
	id, ok := parseID(args)
	if !ok {
		return "Usage: /market <id>"
	}

	var (
		m      ledger.Market
		err    error
		height uint64
	)
	b.rt.View(func(s *ledger.State) {
		m, err = s.Market(id)
		height = s.BlockHeight()
	})
	if err != nil {
		return fmt.Sprintf("Market #%d not found.", id)
	}

	status := "🟢 Open"
	switch {
	case m.Resolved:
		status = "🏁 Resolved: " + m.Options[*m.WinningOption]
	case !m.Open(height):
		status = "⏰ Closed, awaiting resolution"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s\n\n%s\nCloses at block %d\nTotal pool: %s\n\n", m.ID, m.Description, status, m.EndBlock, formatBalance(m.TotalStake))
	for i, opt := range m.Options {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i, opt, formatBalance(m.OptionStakes[i]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) readingText(args []string) string {
	var (
		r   ledger.ClimateReading
		err error
	)
	switch {
	case len(args) == 0:
		b.rt.View(func(s *ledger.State) { r, err = s.LatestReading() })
	default:
		id, ok := parseID(args)
		if !ok {
			return "Usage: /reading [id]"
		}
		b.rt.View(func(s *ledger.State) { r, err = s.Reading(id) })
	}
	if err != nil {
		return "No such climate reading."
	}
	return fmt.Sprintf("🌡 Reading #%d at block %d by %s\nTemperature: %d °C\nPrecipitation: %d mm\nWind: %d km/h",
		r.ID, r.Timestamp, r.Provider, r.Temperature, r.Precipitation, r.WindSpeed)
}

func parseID(args []string) (uint64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(args[0], "#"), 10, 64)
	return id, err == nil
}
