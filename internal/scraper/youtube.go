package scraper

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"chatguard/internal/domain"
)

// YouTube reads a channel's public Atom feed. Scam live streams put their
// lure in the title and description, so each entry is labelled like a chat
// message.
type YouTube struct {
	feedURL string
	client  *http.Client
	parser  *gofeed.Parser
}

func NewYouTube(feedURL string) *YouTube {
	return &YouTube{
		feedURL: feedURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		parser:  gofeed.NewParser(),
	}
}

func (y *YouTube) Scrape(ctx context.Context, channel string) ([]domain.ChatMessage, error) {
	u := y.feedURL + "?channel_id=" + url.QueryEscape(channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/atom+xml, application/xml, text/xml, */*")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	feed, err := y.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(feed.Items))
	for _, item := range feed.Items {
		createdAt := time.Now().UTC()
		if item.PublishedParsed != nil {
			createdAt = item.PublishedParsed.UTC()
		}

		username := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			username = item.Author.Name
		}

		messages = append(messages, domain.ChatMessage{
			ID:        generateID(item.GUID),
			Platform:  domain.PlatformYouTube,
			Channel:   channel,
			Username:  username,
			Text:      entryText(item),
			CreatedAt: createdAt,
		})
	}

	return messages, nil
}

func entryText(item *gofeed.Item) string {
	parts := []string{strings.TrimSpace(item.Title)}
	d := strings.TrimSpace(item.Description)
	if d == "" {
		d = strings.TrimSpace(mediaDescription(item))
	}
	if d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, "\n")
}

func generateID(guid string) string {
	hash := md5.Sum([]byte(guid))
	return fmt.Sprintf("%x", hash)[:12]
}

// YouTube carries the video description in media:group rather than the
// Atom summary.
func mediaDescription(item *gofeed.Item) string {
	for _, g := range item.Extensions["media"]["group"] {
		if ds := g.Children["description"]; len(ds) > 0 {
			return ds[0].Value
		}
	}
	return ""
}
