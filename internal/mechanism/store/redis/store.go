// Package redis stores subscription keys in Redis. Recommended for
// distributed deployments where several keygate instances serve one ledger.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"keygate/internal/mechanism/models"
	id "keygate/pkg/domain"
)

var getDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "keygate_key_store_get_duration_ms",
	Help:    "Latency of subscription key lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// renewalGrace keeps lapsed keys around after expiry so a renewal can still
// find them; validity itself is decided by the service from ExpiresAt.
const renewalGrace = 30 * 24 * time.Hour

type keyRecord struct {
	SaleID      string    `json:"sale_id"`
	Owner       string    `json:"owner"`
	ExpiresAt   time.Time `json:"expires_at"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// KeyStore is a Redis-backed subscription key store.
type KeyStore struct {
	client *redis.Client
	prefix string
}

// New constructs a key store. The namespace keeps several ledgers apart on
// one Redis instance.
func New(client *redis.Client, namespace string) *KeyStore {
	return &KeyStore{client: client, prefix: "keygate:" + namespace + ":key:"}
}

func (s *KeyStore) Get(ctx context.Context, principal id.Address) (*models.SubscriptionKey, error) {
	start := time.Now()
	defer func() {
		getDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := s.client.Get(ctx, s.prefix+principal.Hex()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription key: %w", err)
	}

	var rec keyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode subscription key: %w", err)
	}
	return decodeRecord(rec)
}

func (s *KeyStore) Put(ctx context.Context, key *models.SubscriptionKey) error {
	raw, err := json.Marshal(keyRecord{
		SaleID:      key.SaleID.String(),
		Owner:       key.Owner.Hex(),
		ExpiresAt:   key.ExpiresAt,
		PurchasedAt: key.PurchasedAt,
	})
	if err != nil {
		return fmt.Errorf("encode subscription key: %w", err)
	}

	ttl := time.Until(key.ExpiresAt) + renewalGrace
	if err := s.client.Set(ctx, s.prefix+key.Owner.Hex(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put subscription key: %w", err)
	}
	return nil
}

func (s *KeyStore) Delete(ctx context.Context, principal id.Address) error {
	if err := s.client.Del(ctx, s.prefix+principal.Hex()).Err(); err != nil {
		return fmt.Errorf("delete subscription key: %w", err)
	}
	return nil
}

func (s *KeyStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 256).Result()
		if err != nil {
			return 0, fmt.Errorf("count subscription keys: %w", err)
		}
		count += uint64(len(keys))
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func decodeRecord(rec keyRecord) (*models.SubscriptionKey, error) {
	saleID, err := id.ParseSaleID(rec.SaleID)
	if err != nil {
		return nil, fmt.Errorf("decode sale ID: %w", err)
	}
	owner, err := id.ParseAddress(rec.Owner)
	if err != nil {
		return nil, fmt.Errorf("decode owner: %w", err)
	}
	return &models.SubscriptionKey{
		SaleID:      saleID,
		Owner:       owner,
		ExpiresAt:   rec.ExpiresAt,
		PurchasedAt: rec.PurchasedAt,
	}, nil
}
