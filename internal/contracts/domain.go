package contracts

import "time"

// Contract ties a client to an engagement. Amounts are stored in cents to
// avoid float drift; OutstandingAmount is what remains to be paid.
type Contract struct {
	ID                int64
	ClientID          int64
	TotalAmount       int64
	OutstandingAmount int64
	Signed            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
