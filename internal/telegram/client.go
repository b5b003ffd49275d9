// Package telegram provides a client for sending notifications via Telegram Bot API.
// It formats match batch reports into human-readable messages and handles
// delivery with retry logic for reliability.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/polymatch/internal/batch"
	"github.com/rewired-gh/polymatch/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendReport posts a batch report. live holds the cache's current result
// counts per method and may be nil.
func (c *Client) SendReport(report batch.Report, live map[models.MatchMethod]int) error {
	return c.send(formatReport(report, live))
}

// SendError posts a job failure.
func (c *Client) SendError(job string, err error) error {
	message := fmt.Sprintf("⚠️ *%s failed*\n\n`%s`", escapeMarkdownV2(job), escapeCode(err.Error()))
	return c.send(message)
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	// Send with retry
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatReport formats a batch report into a Telegram message
func formatReport(report batch.Report, live map[models.MatchMethod]int) string {
	var b strings.Builder

	if report.Skipped {
		b.WriteString("⏸ *Match batch skipped*\n\n")
		b.WriteString(escapeMarkdownV2("Target event pool is empty. Run sync first."))
		return b.String()
	}

	b.WriteString("🔗 *Match batch complete*\n\n")
	if report.RunID != "" {
		fmt.Fprintf(&b, "🆔 Run: `%s`\n", escapeCode(report.RunID))
	}
	fmt.Fprintf(&b, "✅ Matched: *%d*\n", report.Matched)
	fmt.Fprintf(&b, "➖ No match: *%d*\n", report.NoMatch)
	fmt.Fprintf(&b, "❌ Errors: *%d*\n", report.Errors)
	fmt.Fprintf(&b, "⏱ Duration: %s\n", escapeMarkdownV2(formatDuration(report.Duration)))

	if len(live) > 0 {
		parts := make([]string, 0, 3)
		for _, m := range []models.MatchMethod{models.MatchMethodEntity, models.MatchMethodAI, models.MatchMethodNone} {
			parts = append(parts, fmt.Sprintf("%s %d", m, live[m]))
		}
		fmt.Fprintf(&b, "\n📦 Live cache: %s\n", escapeMarkdownV2(strings.Join(parts, " · ")))
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes text placed inside a MarkdownV2 code span.
func escapeCode(text string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(text)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if hours := int(d.Hours()); hours >= 1 {
		if mins := int(d.Minutes()) % 60; mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins := int(d.Minutes()); mins >= 1 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
