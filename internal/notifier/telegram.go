package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

type Telegram struct {
	botToken string
	chatIDs  []string
	apiURL   string
	client   *http.Client
}

func NewTelegram(botToken string, chatIDs []string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatIDs:  chatIDs,
		apiURL:   telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	text := formatMessage(n)

	for _, chatID := range t.chatIDs {
		if err := t.send(ctx, chatID, text); err != nil {
			return err
		}
	}

	return nil
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	body, _ := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %d", resp.StatusCode)
	}

	return nil
}

func formatMessage(n Notification) string {
	return fmt.Sprintf(`🎣 <b>%s detected</b>

<b>Channel:</b> %s/%s
<b>User:</b> %s
<b>Phishing score:</b> %.2f%%

<b>Message:</b>
%s`,
		n.Verdict.Label,
		n.Message.Platform,
		html.EscapeString(n.Message.Channel),
		html.EscapeString(n.Message.Username),
		n.Verdict.PhishingScore*100,
		html.EscapeString(n.Message.Text),
	)
}
