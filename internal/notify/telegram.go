package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTelegramAPIBase = "https://api.telegram.org"

// Telegram posts to the Bot API sendMessage method.
type Telegram struct {
	APIBase string
	Token   string
	Client  *http.Client
}

func NewTelegram(apiBase, token string) *Telegram {
	if apiBase == "" {
		apiBase = DefaultTelegramAPIBase
	}
	return &Telegram{
		APIBase: strings.TrimRight(apiBase, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (t *Telegram) SendMessage(ctx context.Context, chatID, text, parseMode string) (*Response, error) {
	body, err := json.Marshal(telegramPayload{ChatID: chatID, Text: text, ParseMode: parseMode})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		// the token is part of the URL; keep it out of logs
		return nil, fmt.Errorf("telegram request: %s", redact(err.Error(), t.Token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read telegram response: %w", err)
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("telegram status %d: undecodable body", resp.StatusCode)
	}
	return &out, nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<redacted>")
}
