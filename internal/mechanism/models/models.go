// Package models holds the ledger's persisted record types.
package models

import (
	"time"

	id "keygate/pkg/domain"
)

// SubscriptionKey is one principal's current key on a ledger. A principal
// holds at most one key; repurchase extends it.
type SubscriptionKey struct {
	SaleID      id.SaleID
	Owner       id.Address
	ExpiresAt   time.Time
	PurchasedAt time.Time
}

// ValidAt reports whether the key is live at t. Validity ends exactly at the
// expiry instant: a key is valid at ExpiresAt-1s and invalid at ExpiresAt.
func (k *SubscriptionKey) ValidAt(t time.Time) bool {
	if k == nil {
		return false
	}
	return t.Before(k.ExpiresAt)
}
