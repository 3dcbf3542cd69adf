//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/mechanism/models"
	redisstore "keygate/internal/mechanism/store/redis"
	id "keygate/pkg/domain"
	"keygate/pkg/testutil/containers"
)

var (
	owner = id.MustAddress("0x7000000000000000000000000000000000000001")
	other = id.MustAddress("0x7000000000000000000000000000000000000002")
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.KeyStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = redisstore.New(s.redis.Client, "test-ledger")
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeKey(principal id.Address, expiresAt time.Time) *models.SubscriptionKey {
	return &models.SubscriptionKey{
		SaleID:      id.NewSaleID(),
		Owner:       principal,
		ExpiresAt:   expiresAt,
		PurchasedAt: expiresAt.Add(-24 * time.Hour),
	}
}

func (s *RedisStoreSuite) TestGetAbsent() {
	ctx := context.Background()

	key, err := s.store.Get(ctx, owner)
	s.NoError(err)
	s.Nil(key)
}

func (s *RedisStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	key := makeKey(owner, time.Now().Add(24*time.Hour).Truncate(time.Millisecond))

	s.Require().NoError(s.store.Put(ctx, key))

	got, err := s.store.Get(ctx, owner)
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal(key.SaleID, got.SaleID)
	s.Equal(key.Owner, got.Owner)
	s.True(key.ExpiresAt.Equal(got.ExpiresAt))
}

func (s *RedisStoreSuite) TestLapsedKeySurvivesWithinGrace() {
	// A key past its expiry stays readable so a renewal can find it;
	// validity is the service's call, not the store's.
	ctx := context.Background()
	key := makeKey(owner, time.Now().Add(-time.Hour))

	s.Require().NoError(s.store.Put(ctx, key))

	got, err := s.store.Get(ctx, owner)
	s.NoError(err)
	s.NotNil(got)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, makeKey(owner, time.Now().Add(time.Hour))))
	s.Require().NoError(s.store.Delete(ctx, owner))

	got, err := s.store.Get(ctx, owner)
	s.NoError(err)
	s.Nil(got)

	s.NoError(s.store.Delete(ctx, owner))
}

func (s *RedisStoreSuite) TestCountScopedToNamespace() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, makeKey(owner, time.Now().Add(time.Hour))))
	s.Require().NoError(s.store.Put(ctx, makeKey(other, time.Now().Add(time.Hour))))

	foreign := redisstore.New(s.redis.Client, "another-ledger")
	s.Require().NoError(foreign.Put(ctx, makeKey(owner, time.Now().Add(time.Hour))))

	count, err := s.store.Count(ctx)
	s.NoError(err)
	s.Equal(uint64(2), count)

	foreignCount, err := foreign.Count(ctx)
	s.NoError(err)
	s.Equal(uint64(1), foreignCount)
}
