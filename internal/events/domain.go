package events

import "time"

// Event is a booked occasion under a signed contract. SupportID is nil until
// a manager assigns a support user to run it.
type Event struct {
	ID         int64
	Name       string
	ContractID int64
	StartsAt   time.Time
	EndsAt     time.Time
	Location   string
	Attendees  int32
	Notes      string
	SupportID  *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
