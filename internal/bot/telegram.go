package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"daily-bars/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// BarService is the slice of the ingest service the bot commands use.
type BarService interface {
	LatestClose(ctx context.Context, symbol string) (domain.ClosePoint, error)
	QuotaStatus(ctx context.Context) (domain.QuotaState, error)
}

// StartTelegramBot exposes the pipeline over Telegram commands. Skipped
// entirely when no token is configured.
func StartTelegramBot(service BarService, symbols []string, maxCallsPerDay int) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/close", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /close NVDA\nTracked: %s", strings.Join(symbols, ", ")))
		}
		symbol := strings.ToUpper(args[0])
		if !domain.KnownSymbol(symbols, symbol) {
			return c.Send(fmt.Sprintf("Unknown symbol: %s\nTracked: %s", symbol, strings.Join(symbols, ", ")))
		}
		point, err := service.LatestClose(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching close for %s: %v", symbol, err))
		}
		return c.Send(fmt.Sprintf("%s\nClose: $%.2f\nDate: %s",
			symbol, point.Close, point.Date.Format("2006-01-02")))
	})

	b.Handle("/quota", func(c tele.Context) error {
		state, err := service.QuotaStatus(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error reading quota: %v", err))
		}
		remaining := maxCallsPerDay - state.CallsMade
		if remaining < 0 {
			remaining = 0
		}
		return c.Send(fmt.Sprintf("API quota for %s\nUsed: %d/%d\nRemaining: %d",
			state.Day.Format("2006-01-02"), state.CallsMade, maxCallsPerDay, remaining))
	})

	log.Println("Telegram bot started")
	go b.Start()
}
