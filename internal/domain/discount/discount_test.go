package discount

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscount_Expired(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		d    Discount
		want bool
	}{
		{"no expiration", Discount{Status: StatusActive}, false},
		{"expires later", Discount{Status: StatusActive, ExpiresAt: sql.NullTime{Time: now.Add(time.Hour), Valid: true}}, false},
		{"expires now", Discount{Status: StatusActive, ExpiresAt: sql.NullTime{Time: now, Valid: true}}, true},
		{"expired yesterday", Discount{Status: StatusActive, ExpiresAt: sql.NullTime{Time: now.Add(-24 * time.Hour), Valid: true}}, true},
		{"status expired", Discount{Status: StatusExpired}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Expired(now))
		})
	}
}

func TestDiscount_MaxedOut(t *testing.T) {
	assert.False(t, (&Discount{MaxUses: 0, UseCount: 100}).MaxedOut(), "unlimited")
	assert.False(t, (&Discount{MaxUses: 5, UseCount: 4}).MaxedOut())
	assert.True(t, (&Discount{MaxUses: 5, UseCount: 5}).MaxedOut())
	assert.True(t, (&Discount{MaxUses: 5, UseCount: 7}).MaxedOut())
}
