package domain

import "time"

// ChatMessage is one message scraped from a live-stream chat.
type ChatMessage struct {
	ID        string    `json:"id"`
	Platform  Platform  `json:"platform"`
	Channel   string    `json:"channel"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	EmoteID   string    `json:"emote_id,omitempty"`
	IsReply   bool      `json:"is_reply"`
	CreatedAt time.Time `json:"created_at"`
}

type Platform string

const (
	PlatformKick    Platform = "kick"
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformKick, PlatformTwitch, PlatformYouTube:
		return true
	}
	return false
}
