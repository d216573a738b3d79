package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthenticateAndIsOnline(t *testing.T) {
	r := NewRegistry(4)
	require.False(t, r.IsOnline("alice"))

	conn := NewConnectionID()
	r.Authenticate(conn, "alice")
	require.True(t, r.IsOnline("alice"))

	r.Logout(conn)
	require.False(t, r.IsOnline("alice"))
}

func TestSubscribeReceivesNotification(t *testing.T) {
	r := NewRegistry(4)
	conn := NewConnectionID()
	r.Authenticate(conn, "bob")

	ch, unsubscribe := r.Subscribe(conn, "bob")
	defer unsubscribe()

	r.Notify("bob", Notification{MessageID: 1, Sender: "alice", Body: "hi"})

	select {
	case n := <-ch:
		require.Equal(t, uint64(1), n.MessageID)
		require.Equal(t, "alice", n.Sender)
	case <-time.After(time.Second):
		t.Fatal("expected notification, got none")
	}
}

func TestNotifyDropsOldestWhenMailboxFull(t *testing.T) {
	r := NewRegistry(1)
	conn := NewConnectionID()
	ch, unsubscribe := r.Subscribe(conn, "carol")
	defer unsubscribe()

	r.Notify("carol", Notification{MessageID: 1, Body: "first"})
	r.Notify("carol", Notification{MessageID: 2, Body: "second"})

	n := <-ch
	require.Equal(t, uint64(2), n.MessageID, "oldest queued notification should have been dropped")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRegistry(4)
	conn := NewConnectionID()
	_, unsubscribe := r.Subscribe(conn, "dave")
	require.Equal(t, 1, r.SubscriberCount("dave"))

	unsubscribe()
	require.Equal(t, 0, r.SubscriberCount("dave"))
}
