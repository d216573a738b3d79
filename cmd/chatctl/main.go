// Command chatctl is a scriptable client over the chat service's client
// RPC surface: one subcommand per operation, dialing whichever cluster
// member currently accepts writes. Grounded on the original system's
// ReplicatedChatClient, which kept a server list and rotated through it
// on UNAVAILABLE, following a leader hint on FAILED_PRECONDITION;
// chatctl keeps that shape but drives the retry loop through
// cenkalti/backoff instead of the original's hand-rolled sleep.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vzdtic/chat-raft/api/chatpb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addrs []string
	var timeout time.Duration

	root := &cobra.Command{
		Use:   "chatctl",
		Short: "command-line client for the replicated chat service",
	}
	root.PersistentFlags().StringSliceVar(&addrs, "servers", nil, "comma-separated client addresses, e.g. host1:9101,host2:9101")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "per-call deadline")

	conn := &connector{addrsFlag: &addrs}

	root.AddCommand(newCreateAccountCmd(conn, &timeout))
	root.AddCommand(newLoginCmd(conn, &timeout))
	root.AddCommand(newLogoutCmd(conn, &timeout))
	root.AddCommand(newDeleteAccountCmd(conn, &timeout))
	root.AddCommand(newListUsersCmd(conn, &timeout))
	root.AddCommand(newSendCmd(conn, &timeout))
	root.AddCommand(newPopUnreadCmd(conn, &timeout))
	root.AddCommand(newReadMessagesCmd(conn, &timeout))
	root.AddCommand(newDeleteMessagesCmd(conn, &timeout))
	root.AddCommand(newCountsCmd(conn, &timeout))
	root.AddCommand(newSubscribeCmd(conn, &timeout))
	return root
}

// connector holds the server list and the last address that answered
// successfully, so consecutive calls in one invocation stick with it
// rather than re-probing from the top every time.
type connector struct {
	addrsFlag *[]string
	lastGood  string
}

func (c *connector) servers() []string {
	if len(*c.addrsFlag) == 0 {
		return []string{"127.0.0.1:9101"}
	}
	return *c.addrsFlag
}

// call runs fn against each known server in turn, following a leader
// hint embedded in a FailedPrecondition status and retrying the whole
// list with backoff, until it succeeds, 2*len(servers) rounds have
// failed, or ctx expires. Mirrors the original ReplicatedChatClient's
// _retry_operation/_handle_error pair.
func (c *connector) call(ctx context.Context, timeout time.Duration, fn func(context.Context, chatpb.ClientServiceClient) error) error {
	servers := c.servers()
	order := servers
	if c.lastGood != "" {
		order = append([]string{c.lastGood}, servers...)
	}

	operation := func() (struct{}, error) {
		var lastErr error
		for _, addr := range order {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			err := dialAndCall(callCtx, addr, fn)
			cancel()
			if err == nil {
				c.lastGood = addr
				return struct{}{}, nil
			}
			lastErr = err
			if hint, ok := leaderHint(err); ok {
				order = append([]string{hint}, order...)
			}
		}
		return struct{}{}, lastErr
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(len(servers)*2)),
	)
	return err
}

func dialAndCall(ctx context.Context, addr string, fn func(context.Context, chatpb.ClientServiceClient) error) error {
	cc, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer cc.Close()
	return fn(ctx, chatpb.NewClientServiceClient(cc))
}

// leaderHint extracts a "leader_hint=host:port" suffix from a
// FailedPrecondition status message, the Go analogue of the original's
// "not leader;host:port" detail string.
func leaderHint(err error) (string, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	const marker = "leader_hint="
	if idx := strings.Index(st.Message(), marker); idx >= 0 {
		return strings.TrimSpace(st.Message()[idx+len(marker):]), true
	}
	return "", false
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newCreateAccountCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "create-account <username> <password>",
		Args:  cobra.ExactArgs(2),
		Short: "create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				_, err := c.CreateAccount(ctx, &chatpb.CreateAccountRequest{Username: args[0], Password: args[1]})
				return err
			})
		},
	}
}

func newLoginCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Args:  cobra.ExactArgs(2),
		Short: "authenticate and print a connection ID for subsequent commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				resp, err := c.Login(ctx, &chatpb.LoginRequest{Username: args[0], Password: args[1]})
				if err != nil {
					return err
				}
				printJSON(resp)
				return nil
			})
		},
	}
}

func newLogoutCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <connection-id>",
		Args:  cobra.ExactArgs(1),
		Short: "end a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				_, err := c.Logout(ctx, &chatpb.LogoutRequest{ConnectionID: args[0]})
				return err
			})
		},
	}
}

func newDeleteAccountCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-account <connection-id>",
		Args:  cobra.ExactArgs(1),
		Short: "delete the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				_, err := c.DeleteAccount(ctx, &chatpb.DeleteAccountRequest{ConnectionID: args[0]})
				return err
			})
		},
	}
}

func newListUsersCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "list accounts, optionally filtered by a wildcard pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				resp, err := c.ListUsers(ctx, &chatpb.ListUsersRequest{Pattern: pattern})
				if err != nil {
					return err
				}
				printJSON(resp)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "wildcard pattern, e.g. bob*")
	return cmd
}

func newSendCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "send <connection-id> <recipient> <body>",
		Args:  cobra.ExactArgs(3),
		Short: "send a message to another account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				resp, err := c.SendMessage(ctx, &chatpb.SendMessageRequest{
					ConnectionID: args[0], Recipient: args[1], Body: args[2],
				})
				if err != nil {
					return err
				}
				printJSON(resp)
				return nil
			})
		},
	}
}

func newPopUnreadCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "pop-unread <connection-id>",
		Args:  cobra.ExactArgs(1),
		Short: "pop and print unread messages, moving them to read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				resp, err := c.PopUnread(ctx, &chatpb.PopUnreadRequest{ConnectionID: args[0], Count: int32(count)})
				if err != nil {
					return err
				}
				printJSON(resp)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", -1, "number of messages to pop, -1 for all")
	return cmd
}

func newReadMessagesCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "read-messages <connection-id>",
		Args:  cobra.ExactArgs(1),
		Short: "list previously read messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				resp, err := c.GetReadMessages(ctx, &chatpb.GetReadMessagesRequest{ConnectionID: args[0]})
				if err != nil {
					return err
				}
				printJSON(resp)
				return nil
			})
		},
	}
}

func newDeleteMessagesCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-messages <connection-id> <id> [id...]",
		Args:  cobra.MinimumNArgs(2),
		Short: "delete read messages by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid message id %q: %w", raw, err)
				}
				ids = append(ids, id)
			}
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				_, err := c.DeleteMessages(ctx, &chatpb.DeleteMessagesRequest{ConnectionID: args[0], MessageIDs: ids})
				return err
			})
		},
	}
}

func newCountsCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "counts <connection-id>",
		Args:  cobra.ExactArgs(1),
		Short: "print unread/read message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return conn.call(cmd.Context(), *timeout, func(ctx context.Context, c chatpb.ClientServiceClient) error {
				resp, err := c.GetCounts(ctx, &chatpb.GetCountsRequest{ConnectionID: args[0]})
				if err != nil {
					return err
				}
				printJSON(resp)
				return nil
			})
		},
	}
}

func newSubscribeCmd(conn *connector, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <connection-id>",
		Args:  cobra.ExactArgs(1),
		Short: "stream incoming message notifications until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Streaming doesn't fit the one-shot retry helper: it holds
			// the connection open indefinitely, so it dials directly
			// against the last known good server (or the first listed).
			servers := conn.servers()
			addr := servers[0]
			if conn.lastGood != "" {
				addr = conn.lastGood
			}
			dialCtx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			cc, err := grpc.DialContext(dialCtx, addr,
				grpc.WithTransportCredentials(insecure.NewCredentials()),
				grpc.WithBlock(),
			)
			cancel()
			if err != nil {
				return err
			}
			defer cc.Close()

			client := chatpb.NewClientServiceClient(cc)
			stream, err := client.SubscribeToMessages(cmd.Context(), &chatpb.SubscribeRequest{ConnectionID: args[0]})
			if err != nil {
				return err
			}
			for {
				note, err := stream.Recv()
				if err != nil {
					return err
				}
				printJSON(note)
			}
		},
	}
}
