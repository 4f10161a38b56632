package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"habitTrackerAPI/internal/notification"
)

const DefaultAPIURL = "https://api.telegram.org"

type WebAppInfo struct {
	URL string `json:"url"`
}

type InlineKeyboardButton struct {
	Text   string      `json:"text"`
	WebApp *WebAppInfo `json:"web_app,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// Bot is a minimal Bot API client used to deliver reminders.
type Bot struct {
	token     string
	apiURL    string
	webAppURL string
	client    *http.Client
}

func NewBot(token, webAppURL string) *Bot {
	return &Bot{
		token:     token,
		apiURL:    DefaultAPIURL,
		webAppURL: webAppURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIURL points the bot at a different Bot API host.
func (b *Bot) WithAPIURL(apiURL string) *Bot {
	b.apiURL = strings.TrimRight(apiURL, "/")
	return b
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", b.apiURL, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read sendMessage response: %w", err)
	}

	if !gjson.GetBytes(body, "ok").Bool() {
		description := gjson.GetBytes(body, "description").String()
		if description == "" {
			description = resp.Status
		}
		return fmt.Errorf("sendMessage to %d failed: %s", chatID, description)
	}
	return nil
}

// SendReminder sends one message listing the recipient's outstanding habits.
func (b *Bot) SendReminder(ctx context.Context, r *notification.Recipient, habits []*notification.OutstandingHabit) error {
	var markup *InlineKeyboardMarkup
	if b.webAppURL != "" {
		markup = &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{
				{Text: "📱 Open tracker", WebApp: &WebAppInfo{URL: b.webAppURL}},
			}},
		}
	}

	if err := b.SendMessage(ctx, r.TelegramID, ReminderText(habits), markup); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"telegram_id": r.TelegramID,
		"habits":      len(habits),
	}).Infof("Sent reminder to %s", r.FirstName)
	return nil
}

func ReminderText(habits []*notification.OutstandingHabit) string {
	var sb strings.Builder
	sb.WriteString("⏰ <b>Habit reminder!</b>\n\nStill not done today:")
	for _, h := range habits {
		fmt.Fprintf(&sb, "\n  %s %s", html.EscapeString(h.Icon), html.EscapeString(h.Name))
	}
	return sb.String()
}

func (b *Bot) Name() string {
	return "telegram"
}
