package domain

import (
	"time"
)

// Command send outcomes
const (
	CommandStatusSent    = "sent"
	CommandStatusDropped = "dropped"
)

// CommandRecord is the journal row of one command send attempt
type CommandRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Session   string    `gorm:"index" json:"session"`
	CommandID int       `json:"command_id"`
	Name      string    `gorm:"index" json:"name"`
	Payload   string    `json:"payload"`
	Slot      int       `json:"slot"` // -1 when dropped
	Status    string    `gorm:"index" json:"status"`
	Attempts  int       `json:"attempts"` // slot scan passes
	CreatedAt time.Time `json:"created_at"`
}

// MessageRecord archives a host message after delivery
type MessageRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Session   string    `gorm:"index" json:"session"`
	Millis    int64     `gorm:"index" json:"millis"`
	Type      string    `gorm:"index" json:"type"`
	Text      string    `json:"text"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}
