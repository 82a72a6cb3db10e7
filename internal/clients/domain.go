package clients

import "time"

// Client is a customer record. MarketingContact holds the username of the
// sailor who owns the relationship; ownership-scoped policy rules compare it
// against the acting user.
type Client struct {
	ID               int64
	Name             string
	Email            string
	Phone            string
	Company          string
	MarketingContact string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
