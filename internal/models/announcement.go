package models

import (
	"time"
)

// Announcement is a message posted to all participants.
type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	MessageHTML string    `json:"message_html,omitempty"`
	Author      string    `json:"author"`
	Timestamp   time.Time `json:"timestamp"`
}
