package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// telegramAPI is the Bot API endpoint template. Variable so tests can
// point delivery at a local server.
var telegramAPI = "https://api.telegram.org/bot%s/sendMessage"

// TelegramNotifier delivers alerts to one chat through the Telegram Bot
// API, rendered as MarkdownV2.
type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client
	log    *slog.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token (from
// @BotFather) and target chat, group or channel id.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    slog.Default().With(slog.String("notifier", "telegram")),
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {renderTelegram(alert)},
		"parse_mode": {"MarkdownV2"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(telegramAPI, t.token), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: deliver: %w", err)
	}
	defer resp.Body.Close()

	// The API reports failures two ways: a non-200 status and ok=false
	// in the body. Check both.
	var api struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !api.OK {
		return fmt.Errorf("telegram: rejected (%d): %s", resp.StatusCode, api.Description)
	}
	t.log.Debug("alert delivered", slog.String("title", alert.Title))
	return nil
}

func renderTelegram(alert Alert) string {
	marker := "ℹ️"
	switch alert.Level {
	case AlertWarning:
		marker = "⚠️"
	case AlertCritical:
		marker = "🚨"
	}
	return marker + " *" + escapeMarkdownV2(alert.Title) + "*\n\n" + escapeMarkdownV2(alert.Message)
}

// markdownV2Reserved is the punctuation MarkdownV2 requires escaped
// outside of entities.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!"

func escapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(markdownV2Reserved, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
