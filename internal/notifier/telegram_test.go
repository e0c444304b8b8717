package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatguard/internal/classifier"
	"chatguard/internal/domain"
)

func testNotification() Notification {
	return Notification{
		Message: domain.ChatMessage{
			Platform: domain.PlatformTwitch,
			Channel:  "asmongold",
			Username: "mod<3",
			Text:     `verify here <a href="x">http://twitch-security-check.net</a>`,
		},
		Verdict: classifier.Verdict{Label: classifier.LabelPhishing, PhishingScore: 0.995},
	}
}

func TestFormatMessage(t *testing.T) {
	text := formatMessage(testNotification())

	assert.Contains(t, text, "<b>phishing detected</b>")
	assert.Contains(t, text, "twitch/asmongold")
	assert.Contains(t, text, "mod&lt;3")
	assert.Contains(t, text, "99.50%")
	assert.NotContains(t, text, `<a href`)
}

func TestTelegram_NotifySendsToEveryChat(t *testing.T) {
	var (
		mu    sync.Mutex
		chats []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "HTML", body["parse_mode"])
		mu.Lock()
		chats = append(chats, body["chat_id"].(string))
		mu.Unlock()
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", []string{"1", "2"})
	tg.apiURL = srv.URL

	require.NoError(t, tg.Notify(context.Background(), testNotification()))
	assert.Equal(t, []string{"1", "2"}, chats)
}

func TestTelegram_NotifyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", []string{"1"})
	tg.apiURL = srv.URL

	err := tg.Notify(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
