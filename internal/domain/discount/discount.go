package discount

import (
	"database/sql"
	"time"
)

// Status values stored in discounts.status.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusExpired  = "expired"
)

// MetaKeyReminderSent is the annotation written once a reminder went out.
const (
	MetaKeyReminderSent = "reminder_sent"
	MetaValueSent       = "sent"
)

// Discount represents a discount code managed by the shop.
// NotifyTarget holds the discount title, which shop owners fill with the
// customer's e-mail address.
type Discount struct {
	ID           int64
	Code         string
	NotifyTarget string
	Status       string
	ExpiresAt    sql.NullTime // NULL means the code never expires
	MaxUses      int          // 0 means unlimited
	UseCount     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the discount can no longer be redeemed at now.
func (d *Discount) Expired(now time.Time) bool {
	if d.Status == StatusExpired {
		return true
	}
	return d.ExpiresAt.Valid && !d.ExpiresAt.Time.After(now)
}

// MaxedOut reports whether the usage cap has been reached.
func (d *Discount) MaxedOut() bool {
	return d.MaxUses > 0 && d.UseCount >= d.MaxUses
}
