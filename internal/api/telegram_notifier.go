// Package api provides clients for external messaging APIs
package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"github.com/abelzeko/stream-report/internal/entities"
	"github.com/abelzeko/stream-report/internal/quality"
	"github.com/abelzeko/stream-report/internal/render"
)

// TelegramNotifier sends impairment alerts to a Telegram chat
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	rules  quality.Rules
}

// NewTelegramNotifier creates a notifier using the public Telegram endpoint
func NewTelegramNotifier(botToken string, chatID int64, rules quality.Rules) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(botToken, tgbotapi.APIEndpoint, chatID, rules)
}

// NewTelegramNotifierWithEndpoint creates a notifier against a custom API endpoint.
// endpoint is a format string taking the token and the method name.
func NewTelegramNotifierWithEndpoint(botToken, endpoint string, chatID int64, rules quality.Rules) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if rules == nil {
		rules = quality.DefaultRules()
	}

	log.Printf("Authorized on Telegram account %s", bot.Self.UserName)
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		rules:  rules,
	}, nil
}

// NotifyImpairments sends one message listing every Bad month of the grid.
// Nothing is sent when the grid has no impairment.
func (n *TelegramNotifier) NotifyImpairments(labels render.Labels, grid entities.MonthlyGrid) error {
	text := FormatImpairments(labels, grid, n.rules)
	if text == "" {
		log.Println("No impairments found, skipping alert")
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	log.WithField("chat", n.chatID).Info("Impairment alert sent")
	return nil
}

// FormatImpairments renders the alert text, or "" when no cell is Bad
func FormatImpairments(labels render.Labels, grid entities.MonthlyGrid, rules quality.Rules) string {
	bad := grid.Impairments()
	if len(bad) == 0 {
		return ""
	}
	if rules == nil {
		rules = quality.DefaultRules()
	}

	var result strings.Builder
	title := "Water quality alert"
	if labels.ReportYear > 0 {
		title = fmt.Sprintf("%s %d", title, labels.ReportYear)
	}
	result.WriteString(fmt.Sprintf("⚠️ %s\n", title))
	if loc := labels.Location(); loc != "" {
		result.WriteString(fmt.Sprintf("📍 %s\n", loc))
	}
	result.WriteString("\n")

	for _, c := range bad {
		result.WriteString(fmt.Sprintf("• %s %s: %s (limit %s)\n",
			c.Month.String()[:3], c.Parameter, formatReading(c.Value), rules.For(c.Parameter)))
	}

	result.WriteString(fmt.Sprintf("\n%d impaired month(s). Please report the readings to your local Adopt-A-Stream coordinator.", len(bad)))
	return result.String()
}

func formatReading(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
