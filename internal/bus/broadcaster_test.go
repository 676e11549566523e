package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster[SyncEvent]()
	var gotA, gotB SyncEvent
	b.Subscribe("a", func(e SyncEvent) { gotA = e })
	b.Subscribe("b", func(e SyncEvent) { gotB = e })

	b.Broadcast(SyncEvent{LibraryID: "lib1", Path: "foo.md", Kind: "upserted"})

	require.Equal(t, "lib1", gotA.LibraryID)
	require.Equal(t, "lib1", gotB.LibraryID)
}

func TestBroadcasterUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster[SyncEvent]()
	calls := 0
	b.Subscribe("a", func(e SyncEvent) { calls++ })
	b.Unsubscribe("a")

	b.Broadcast(SyncEvent{Kind: "removed"})

	require.Equal(t, 0, calls)
}

func TestBroadcasterNoSubscribersIsNoop(t *testing.T) {
	b := NewBroadcaster[StreamEvent]()
	require.NotPanics(t, func() {
		b.Broadcast(StreamEvent{Name: EventChunk})
	})
}
