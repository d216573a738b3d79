// Package chatstate is the Chat State Machine (CSM): the deterministic
// replicated state every node builds by applying committed log entries in
// order. The Apply dispatch-by-command-type shape and the gob
// Snapshot/Restore envelope follow the idiom the consensus layer expects
// of any applied state machine. Retries are handled as at-least-once: a
// client that doesn't see a response re-sends, and re-applying a
// SendMessage/PopUnread/DeleteMessages twice is an accepted, documented
// behavior rather than something the CSM deduplicates.
package chatstate

import (
	"bytes"
	"encoding/gob"
)

// Kind is the closed sum type of replicated chat commands, a closed enum
// in place of dynamically string-tagged commands.
type Kind int

const (
	CmdCreateAccount Kind = iota
	CmdDeleteAccount
	CmdSendMessage
	CmdPopUnread
	CmdDeleteMessages
)

func (k Kind) String() string {
	switch k {
	case CmdCreateAccount:
		return "CreateAccount"
	case CmdDeleteAccount:
		return "DeleteAccount"
	case CmdSendMessage:
		return "SendMessage"
	case CmdPopUnread:
		return "PopUnread"
	case CmdDeleteMessages:
		return "DeleteMessages"
	default:
		return "Unknown"
	}
}

// Command is the payload carried inside a replicated log entry. Not every
// field is meaningful for every Kind; see the per-command comments.
type Command struct {
	Kind Kind

	// CreateAccount / DeleteAccount / SendMessage(sender) / PopUnread /
	// DeleteMessages(actor): the account the command is issued as.
	Username string

	// CreateAccount only: pre-derived credential, computed by the
	// leader via internal/auth.Hasher before the command is proposed —
	// the CSM itself never calls a KDF.
	PasswordHash string
	PasswordSalt string

	// SendMessage only.
	Recipient string
	Body      string
	// RecipientOnline is decided once, by the leader, at submission time
	// — never recomputed by a follower at apply time. applySendMessage
	// reads it to decide whether the message lands in Read or Unread.
	RecipientOnline bool

	// PopUnread only. Count < 0 means "pop all".
	Count int

	// DeleteMessages only.
	MessageIDs []uint64
}

// Encode gob-encodes a Command for inclusion in a wal.Entry.
func Encode(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cmd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Command, error) {
	var cmd Command
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
