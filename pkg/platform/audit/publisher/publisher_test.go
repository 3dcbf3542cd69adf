package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
	audit "keygate/pkg/platform/audit"
	"keygate/pkg/platform/audit/store/memory"
)

var testPrincipal = id.MustAddress("0x8ba1f109551bd432803012645ac136ddd64dba72")

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		Category:  audit.CategoryCompliance,
		Principal: testPrincipal,
		Action:    string(audit.EventCredentialGranted),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), testPrincipal)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCredentialGranted), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "Emit should stamp the event time")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	for i := 0; i < 5; i++ {
		err := pub.Emit(context.Background(), audit.Event{
			Principal: testPrincipal,
			Action:    string(audit.EventCredentialGranted),
		})
		require.NoError(t, err)
	}

	// Close drains the queue before returning.
	pub.Close()

	events, err := pub.List(context.Background(), testPrincipal)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}

func TestPublisher_ListFiltersByPrincipal(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	other := id.MustAddress("0x1000000000000000000000000000000000000001")

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Principal: testPrincipal, Action: "a", Timestamp: time.Now()}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Principal: other, Action: "b", Timestamp: time.Now()}))

	events, err := pub.List(context.Background(), other)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].Action)
}
