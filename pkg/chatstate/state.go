package chatstate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/vzdtic/chat-raft/internal/chaterr"
)

// Message is a single chat message. IDs are assigned only inside Apply:
// message-id allocation must not happen at RPC ingress, or two
// leaders-in-waiting proposing concurrently would race on the counter
// and diverge.
type Message struct {
	ID     uint64
	Sender string
	Body   string
}

// Account holds one user's credential and ordered mailboxes. Unread/Read
// are ordered slices of Message (not just IDs) so GetReadMessages and
// PopUnread can return content directly.
type Account struct {
	Username     string
	PasswordHash string
	PasswordSalt string
	Unread       []Message
	Read         []Message
}

// Result is what Apply returns for a given command; façades translate it
// into the appropriate RPC response.
type Result struct {
	OK             bool
	AssignedID     uint64    // SendMessage: the id assigned to the new message
	PoppedMessages []Message // PopUnread: the messages moved to Read
	// DeliveredAsRead reports whether a SendMessage landed directly in
	// Read because the leader's command said the recipient was online
	// at submission time — the façade's live Notify fan-out is driven
	// by this, not by a second, independently-computed online check.
	DeliveredAsRead bool
}

// Store is the Chat State Machine: accounts plus the apply-time-only
// message id counter.
type Store struct {
	mu            sync.RWMutex
	accounts      map[string]*Account
	nextMessageID uint64
}

// New constructs an empty CSM.
func New() *Store {
	return &Store{
		accounts: make(map[string]*Account),
	}
}

// Apply decodes and applies one committed command. It is called exactly
// once per committed log index, by the Apply Pipeline, never directly by
// an RPC handler.
func (s *Store) Apply(raw []byte) (Result, error) {
	cmd, err := Decode(raw)
	if err != nil {
		return Result{}, fmt.Errorf("decode command: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	var applyErr error

	switch cmd.Kind {
	case CmdCreateAccount:
		res, applyErr = s.applyCreateAccount(cmd)
	case CmdDeleteAccount:
		res, applyErr = s.applyDeleteAccount(cmd)
	case CmdSendMessage:
		res, applyErr = s.applySendMessage(cmd)
	case CmdPopUnread:
		res, applyErr = s.applyPopUnread(cmd)
	case CmdDeleteMessages:
		res, applyErr = s.applyDeleteMessages(cmd)
	default:
		applyErr = chaterr.InvalidArgument(fmt.Sprintf("unknown command kind %d", cmd.Kind))
	}

	return res, applyErr
}

func (s *Store) applyCreateAccount(cmd Command) (Result, error) {
	if cmd.Username == "" {
		return Result{}, chaterr.InvalidArgument("username must not be empty")
	}
	if _, exists := s.accounts[cmd.Username]; exists {
		return Result{}, chaterr.AlreadyExists(fmt.Sprintf("account %q already exists", cmd.Username))
	}
	s.accounts[cmd.Username] = &Account{
		Username:     cmd.Username,
		PasswordHash: cmd.PasswordHash,
		PasswordSalt: cmd.PasswordSalt,
	}
	return Result{OK: true}, nil
}

func (s *Store) applyDeleteAccount(cmd Command) (Result, error) {
	if _, exists := s.accounts[cmd.Username]; !exists {
		return Result{}, chaterr.NotFound(fmt.Sprintf("account %q does not exist", cmd.Username))
	}
	delete(s.accounts, cmd.Username)
	return Result{OK: true}, nil
}

// applySendMessage routes the new message into Read instead of Unread
// when cmd.RecipientOnline says the leader had a live subscriber for the
// recipient at submission time — this is the one and only place that
// hint is consulted, so every replica lands the message in the same
// mailbox deterministically.
func (s *Store) applySendMessage(cmd Command) (Result, error) {
	recipient, exists := s.accounts[cmd.Recipient]
	if !exists {
		return Result{}, chaterr.NotFound(fmt.Sprintf("recipient %q does not exist", cmd.Recipient))
	}

	s.nextMessageID++
	msg := Message{ID: s.nextMessageID, Sender: cmd.Username, Body: cmd.Body}

	if cmd.RecipientOnline {
		recipient.Read = append(recipient.Read, msg)
		return Result{OK: true, AssignedID: msg.ID, DeliveredAsRead: true}, nil
	}

	recipient.Unread = append(recipient.Unread, msg)
	return Result{OK: true, AssignedID: msg.ID}, nil
}

// applyPopUnread moves messages from Unread to Read, in order, and returns
// the popped slice. Count < 0 means "pop all".
func (s *Store) applyPopUnread(cmd Command) (Result, error) {
	acct, exists := s.accounts[cmd.Username]
	if !exists {
		return Result{}, chaterr.NotFound(fmt.Sprintf("account %q does not exist", cmd.Username))
	}

	n := cmd.Count
	if n < 0 || n > len(acct.Unread) {
		n = len(acct.Unread)
	}

	popped := make([]Message, n)
	copy(popped, acct.Unread[:n])
	acct.Unread = acct.Unread[n:]
	acct.Read = append(acct.Read, popped...)

	return Result{OK: true, PoppedMessages: popped}, nil
}

func (s *Store) applyDeleteMessages(cmd Command) (Result, error) {
	acct, exists := s.accounts[cmd.Username]
	if !exists {
		return Result{}, chaterr.NotFound(fmt.Sprintf("account %q does not exist", cmd.Username))
	}

	toDelete := make(map[uint64]bool, len(cmd.MessageIDs))
	for _, id := range cmd.MessageIDs {
		toDelete[id] = true
	}

	acct.Unread = filterMessages(acct.Unread, toDelete)
	acct.Read = filterMessages(acct.Read, toDelete)

	return Result{OK: true}, nil
}

func filterMessages(in []Message, remove map[uint64]bool) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		if !remove[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// --- Non-replicated read-only queries ---

// GetAccount returns a defensive copy of an account, used by Login to
// verify credentials against the leader's current state.
func (s *Store) GetAccount(username string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[username]
	if !ok {
		return Account{}, false
	}
	return cloneAccount(acct), true
}

// Counts reports unread/read mailbox sizes for GetCounts.
type Counts struct {
	Unread int
	Read   int
}

func (s *Store) GetCounts(username string) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[username]
	if !ok {
		return Counts{}, chaterr.NotFound(fmt.Sprintf("account %q does not exist", username))
	}
	return Counts{Unread: len(acct.Unread), Read: len(acct.Read)}, nil
}

func (s *Store) GetReadMessages(username string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[username]
	if !ok {
		return nil, chaterr.NotFound(fmt.Sprintf("account %q does not exist", username))
	}
	out := make([]Message, len(acct.Read))
	copy(out, acct.Read)
	return out, nil
}

// Snapshot/Restore use a gob envelope for the whole applied state.
type snapshotEnvelope struct {
	Accounts      map[string]*Account
	NextMessageID uint64
}

func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env := snapshotEnvelope{
		Accounts:      s.accounts,
		NextMessageID: s.nextMessageID,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Store) Restore(data []byte) error {
	var env snapshotEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = env.Accounts
	if s.accounts == nil {
		s.accounts = make(map[string]*Account)
	}
	s.nextMessageID = env.NextMessageID
	return nil
}

func cloneAccount(a *Account) Account {
	out := Account{
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		PasswordSalt: a.PasswordSalt,
		Unread:       make([]Message, len(a.Unread)),
		Read:         make([]Message, len(a.Read)),
	}
	copy(out.Unread, a.Unread)
	copy(out.Read, a.Read)
	return out
}
