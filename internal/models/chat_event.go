package models

import (
	"encoding/json"
	"time"
)

// ChatEvent is the outbound envelope fanned out to every member of a group.
type ChatEvent struct {
	Message         string
	ImageURL        *string
	SenderHandle    string
	Mentions        []string
	IsPrivate       bool
	RecipientHandle *string
	CreatedAt       *time.Time
	RecordID        *uint
}

type globalFrame struct {
	Message  string   `json:"message"`
	ImageURL *string  `json:"image_url"`
	Username string   `json:"username"`
	Mentions []string `json:"mentions"`
}

type privateFrame struct {
	Private   bool    `json:"private"`
	Message   string  `json:"message"`
	ImageURL  *string `json:"image_url"`
	Username  string  `json:"username"`
	To        *string `json:"to"`
	Timestamp *string `json:"timestamp"`
	ID        *uint   `json:"id"`
}

// MarshalJSON writes the global or the private wire frame.
func (e ChatEvent) MarshalJSON() ([]byte, error) {
	if !e.IsPrivate {
		mentions := e.Mentions
		if mentions == nil {
			mentions = []string{}
		}
		return json.Marshal(globalFrame{
			Message:  e.Message,
			ImageURL: e.ImageURL,
			Username: e.SenderHandle,
			Mentions: mentions,
		})
	}

	var ts *string
	if e.CreatedAt != nil {
		formatted := e.CreatedAt.UTC().Format(time.RFC3339Nano)
		ts = &formatted
	}
	return json.Marshal(privateFrame{
		Private:   true,
		Message:   e.Message,
		ImageURL:  e.ImageURL,
		Username:  e.SenderHandle,
		To:        e.RecipientHandle,
		Timestamp: ts,
		ID:        e.RecordID,
	})
}

// Notice is the single-field acknowledgement sent only to the requesting connection.
type Notice struct {
	Info string `json:"info"`
}
