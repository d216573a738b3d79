package grpcclient

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vzdtic/chat-raft/internal/chaterr"
)

func TestToStatusMapsNotLeaderWithHint(t *testing.T) {
	err := toStatus(chaterr.NotLeader("node-2"))
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.FailedPrecondition, st.Code())
	require.Contains(t, st.Message(), "node-2")
}

func TestToStatusMapsKindsToCodes(t *testing.T) {
	cases := map[*chaterr.Error]codes.Code{
		chaterr.NotFound("x"):          codes.NotFound,
		chaterr.AlreadyExists("x"):     codes.AlreadyExists,
		chaterr.InvalidArgument("x"):   codes.InvalidArgument,
		chaterr.Unauthenticated("x"):   codes.Unauthenticated,
		chaterr.Timeout("x"):           codes.DeadlineExceeded,
		chaterr.Unavailable("x"):       codes.Unavailable,
	}
	for ce, want := range cases {
		st, ok := status.FromError(toStatus(ce))
		require.True(t, ok)
		require.Equal(t, want, st.Code())
	}
}

func TestToStatusNilIsNil(t *testing.T) {
	require.NoError(t, toStatus(nil))
}
