package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
	"noshow-service/internal/config"
	"noshow-service/internal/logging"
	"noshow-service/internal/models"
	"noshow-service/internal/utils"
)

const (
	telegramAttempts = 3
	telegramDelay    = time.Second
)

// Telegram forwards notifications to the staff chat.
type Telegram struct {
	bot         *bot.Bot
	chatID      int64
	minSeverity models.Severity
	limiter     *rate.Limiter
	logger      *logging.Logger
	attempts    int
	delay       time.Duration
}

// NewTelegram builds the provider from config. Extra bot options are appended, e.g. a test server URL.
func NewTelegram(cfg config.Config, logger *logging.Logger, opts ...bot.Option) (*Telegram, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("missing TELEGRAM_BOT_TOKEN")
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, fmt.Errorf("missing TELEGRAM_CHAT_ID")
	}
	min := models.Severity(cfg.Telegram.MinSeverity)
	if min.Rank() == 0 {
		return nil, fmt.Errorf("invalid TELEGRAM_MIN_SEVERITY %q", cfg.Telegram.MinSeverity)
	}
	ratePerSecond := cfg.Telegram.RateLimit
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}

	b, err := bot.New(cfg.Telegram.BotToken, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	return &Telegram{
		bot:         b,
		chatID:      cfg.Telegram.ChatID,
		minSeverity: min,
		limiter:     rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:      logger.With("provider", "telegram"),
		attempts:    telegramAttempts,
		delay:       telegramDelay,
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) MinSeverity() models.Severity {
	return t.minSeverity
}

// Send posts n to the configured chat, retrying transient failures.
func (t *Telegram) Send(ctx context.Context, n models.Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   formatMessage(n),
	}
	return utils.Retry(ctx, t.logger, t.attempts, t.delay, func() error {
		if _, err := t.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}

func formatMessage(n models.Notification) string {
	return fmt.Sprintf("[%s] %s\n%s",
		strings.ToUpper(string(n.Severity)),
		n.Message,
		n.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	)
}
