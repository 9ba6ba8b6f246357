package models

import "time"

// PrivateMessage is a durable record of one private message between two users.
// Records are immutable after creation except for the Read flag.
type PrivateMessage struct {
	// ID is assigned by the database on insert.
	ID uint `gorm:"primaryKey" json:"id"`
	// SenderID references User.ID of the author.
	SenderID uint `gorm:"not null;index:idx_pm_pair" json:"sender_id"`
	// RecipientID references User.ID of the addressee.
	RecipientID uint `gorm:"not null;index:idx_pm_pair" json:"recipient_id"`
	// Content is the message text. It may be empty when an image is attached.
	Content string `gorm:"type:text;not null" json:"content"`
	// ImageURL points at an uploaded image, if any.
	ImageURL *string `gorm:"type:text" json:"image_url"`
	// CreatedAt orders the conversation.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	// Read is set once the recipient has fetched the message.
	Read bool `gorm:"not null" json:"read"`
}
