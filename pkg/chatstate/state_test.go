package chatstate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vzdtic/chat-raft/internal/chaterr"
)

func applyCmd(t *testing.T, s *Store, cmd Command) Result {
	t.Helper()
	raw, err := Encode(cmd)
	require.NoError(t, err)
	res, err := s.Apply(raw)
	require.NoError(t, err)
	return res
}

func TestCreateAccountRejectsDuplicate(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "alice"})

	raw, err := Encode(Command{Kind: CmdCreateAccount, Username: "alice"})
	require.NoError(t, err)
	_, err = s.Apply(raw)
	require.Error(t, err)
	require.Equal(t, chaterr.KindAlreadyExists, chaterr.KindOf(err))
}

func TestSendMessageAssignsMonotonicIDsAtApply(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})

	r1 := applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "alice", Recipient: "bob", Body: "hi"})
	r2 := applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "alice", Recipient: "bob", Body: "again"})

	require.Equal(t, uint64(1), r1.AssignedID)
	require.Equal(t, uint64(2), r2.AssignedID)
}

func TestPopUnreadNegativeCountPopsAll(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "1"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "2"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "3"})

	res := applyCmd(t, s, Command{Kind: CmdPopUnread, Username: "bob", Count: -1})
	require.Len(t, res.PoppedMessages, 3)

	counts, err := s.GetCounts("bob")
	require.NoError(t, err)
	require.Equal(t, 0, counts.Unread)
	require.Equal(t, 3, counts.Read)
}

func TestPopUnreadBoundedCount(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "1"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "2"})

	res := applyCmd(t, s, Command{Kind: CmdPopUnread, Username: "bob", Count: 1})
	require.Len(t, res.PoppedMessages, 1)
	require.Equal(t, uint64(1), res.PoppedMessages[0].ID)

	counts, err := s.GetCounts("bob")
	require.NoError(t, err)
	require.Equal(t, 1, counts.Unread)
	require.Equal(t, 1, counts.Read)
}

func TestDeleteMessagesRemovesFromBothMailboxes(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "1"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "2"})
	applyCmd(t, s, Command{Kind: CmdPopUnread, Username: "bob", Count: 1})

	applyCmd(t, s, Command{Kind: CmdDeleteMessages, Username: "bob", MessageIDs: []uint64{1, 2}})

	counts, err := s.GetCounts("bob")
	require.NoError(t, err)
	require.Equal(t, 0, counts.Unread)
	require.Equal(t, 0, counts.Read)
}

func TestListUsersGlobPattern(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "alice"})
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "alicia"})
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})

	all, err := s.ListUsers("*")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "alicia", "bob"}, all)

	ali, err := s.ListUsers("ali*")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "alicia"}, ali)
}

func TestApplyIsAtLeastOnceNotDeduped(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})

	cmd := Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "x"}
	raw, err := Encode(cmd)
	require.NoError(t, err)

	r1, err := s.Apply(raw)
	require.NoError(t, err)
	r2, err := s.Apply(raw)
	require.NoError(t, err)
	require.NotEqual(t, r1.AssignedID, r2.AssignedID, "re-applying a committed entry twice assigns two distinct ids")

	counts, err := s.GetCounts("bob")
	require.NoError(t, err)
	require.Equal(t, 2, counts.Unread)
}

func TestSendMessageOnlineHintRoutesToRead(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})

	res := applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "hi", RecipientOnline: true})
	require.True(t, res.DeliveredAsRead)

	counts, err := s.GetCounts("bob")
	require.NoError(t, err)
	require.Equal(t, 0, counts.Unread)
	require.Equal(t, 1, counts.Read)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	applyCmd(t, s, Command{Kind: CmdCreateAccount, Username: "bob"})
	applyCmd(t, s, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "hi"})

	data, err := s.Snapshot()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Restore(data))

	counts, err := restored.GetCounts("bob")
	require.NoError(t, err)
	require.Equal(t, 1, counts.Unread)

	// The message-id counter must also survive, or a post-restore
	// SendMessage could collide with an already-delivered id.
	res := applyCmd(t, restored, Command{Kind: CmdSendMessage, Username: "a", Recipient: "bob", Body: "second"})
	require.Equal(t, uint64(2), res.AssignedID)
}
