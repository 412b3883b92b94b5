package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

type memoryStore struct {
	sessions map[string]*statex.SessionState
	saveErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]*statex.SessionState{}}
}

func (m *memoryStore) Load(_ context.Context, sessionID string) (*statex.SessionState, error) {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, statex.ErrStateNotFound
	}
	return sess.Clone(), nil
}

func (m *memoryStore) Save(_ context.Context, st *statex.SessionState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[st.SessionID] = st.Clone()
	return nil
}

func (m *memoryStore) Deactivate(_ context.Context, sessionID string) error {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return statex.ErrStateNotFound
	}
	sess.Active = false
	return nil
}

type memoryHistory struct {
	messages map[string][]statex.StoredMessage
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{messages: map[string][]statex.StoredMessage{}}
}

func (m *memoryHistory) Append(_ context.Context, sessionID, role, content, agentType string) error {
	m.messages[sessionID] = append(m.messages[sessionID], statex.StoredMessage{
		Role:      role,
		Content:   content,
		AgentType: agentType,
	})
	return nil
}

func (m *memoryHistory) List(_ context.Context, sessionID string) ([]statex.StoredMessage, error) {
	return m.messages[sessionID], nil
}

func (m *memoryHistory) Recent(_ context.Context, sessionID string, n int) ([]statex.StoredMessage, error) {
	msgs := m.messages[sessionID]
	if len(msgs) <= n {
		return msgs, nil
	}
	return msgs[len(msgs)-n:], nil
}

type fakeResponder struct {
	reply  string
	mutate func(sess *statex.SessionState)
	err    error
	gotCtx string
	calls  int
}

func (f *fakeResponder) Respond(
	_ context.Context,
	sess *statex.SessionState,
	contextSummary string,
	_ []*schema.Message,
) ([]*schema.Message, error) {
	f.calls++
	f.gotCtx = contextSummary
	if f.err != nil {
		return nil, f.err
	}
	if f.mutate != nil {
		f.mutate(sess)
	}
	return []*schema.Message{schema.AssistantMessage(f.reply, nil)}, nil
}

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event string, _ any) error {
	f.events = append(f.events, event)
	return f.err
}

func newTestOrchestrator(t *testing.T, store *memoryStore, history *memoryHistory, responder *fakeResponder, publisher EventPublisher) *Orchestrator {
	t.Helper()
	o, err := New(store, history, responder, publisher, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	counter := 0
	o.newID = func() string {
		counter++
		return fmt.Sprintf("sess-%d", counter)
	}
	return o
}

func TestHandleMessageNewSession(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	history := newMemoryHistory()
	responder := &fakeResponder{reply: "Happy to help with a personal loan!"}
	o := newTestOrchestrator(t, store, history, responder, nil)

	res, err := o.HandleMessage(context.Background(), "", "I need a loan")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("no session id returned")
	}
	if res.Message != "Happy to help with a personal loan!" {
		t.Fatalf("reply = %q", res.Message)
	}

	sess, ok := store.sessions[res.SessionID]
	if !ok {
		t.Fatal("session not persisted")
	}
	if sess.Stage != statex.StageInitial {
		t.Fatalf("stage = %s, want initial", sess.Stage)
	}

	msgs := history.messages[res.SessionID]
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want user+assistant", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("history roles = %s,%s", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].AgentType != "master" {
		t.Fatalf("assistant agent tag = %q", msgs[1].AgentType)
	}
}

func TestHandleMessageResumesSession(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	history := newMemoryHistory()
	sess := statex.NewSessionState("sess-existing", time.Now())
	sess.Stage = statex.StageVerification
	sess.CustomerID = "CUST001"
	sess.LoanAmount = 300000
	store.sessions[sess.SessionID] = sess
	for i, content := range []string{"old question", "one", "two", "three", "four"} {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := history.Append(context.Background(), sess.SessionID, role, content, ""); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	responder := &fakeResponder{reply: "Let's continue."}
	o := newTestOrchestrator(t, store, history, responder, nil)

	res, err := o.HandleMessage(context.Background(), "sess-existing", "where were we?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.SessionID != "sess-existing" {
		t.Fatalf("session id = %q", res.SessionID)
	}
	if !strings.Contains(responder.gotCtx, "Current stage: verification") {
		t.Fatalf("context summary = %q, missing stage", responder.gotCtx)
	}
	if !strings.Contains(responder.gotCtx, "Customer ID: CUST001") {
		t.Fatalf("context summary = %q, missing customer", responder.gotCtx)
	}
	// the summary quotes only the most recent messages
	if !strings.Contains(responder.gotCtx, "four") || strings.Contains(responder.gotCtx, "old question") {
		t.Fatalf("context summary = %q, want last messages only", responder.gotCtx)
	}
}

func TestHandleMessagePersistsToolMutations(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	history := newMemoryHistory()
	responder := &fakeResponder{
		reply: "You are verified!",
		mutate: func(sess *statex.SessionState) {
			sess.CustomerID = "CUST001"
			sess.Advance(statex.StageVerification)
		},
	}
	o := newTestOrchestrator(t, store, history, responder, nil)

	res, err := o.HandleMessage(context.Background(), "", "my pan is ABCDE1234F")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	sess := store.sessions[res.SessionID]
	if sess.Stage != statex.StageVerification {
		t.Fatalf("persisted stage = %s, want verification", sess.Stage)
	}
	if sess.CustomerID != "CUST001" {
		t.Fatalf("persisted customer = %q", sess.CustomerID)
	}
}

func TestHandleMessageEmptyText(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newMemoryStore(), newMemoryHistory(), &fakeResponder{reply: "x"}, nil)
	_, err := o.HandleMessage(context.Background(), "", "   ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("error = %v, want %v", err, ErrInvalidMessage)
	}
}

func TestHandleMessageInactiveSession(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	sess := statex.NewSessionState("sess-closed", time.Now())
	sess.Active = false
	store.sessions[sess.SessionID] = sess

	o := newTestOrchestrator(t, store, newMemoryHistory(), &fakeResponder{reply: "x"}, nil)
	_, err := o.HandleMessage(context.Background(), "sess-closed", "hello again")
	if !errors.Is(err, ErrInactiveSession) {
		t.Fatalf("error = %v, want %v", err, ErrInactiveSession)
	}
}

func TestHandleMessagePublishesSanctionOnce(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	history := newMemoryHistory()
	pub := &fakePublisher{}
	responder := &fakeResponder{
		reply: "Sanctioned!",
		mutate: func(sess *statex.SessionState) {
			sess.LoanAmount = 400000
			sess.Advance(statex.StageSanction)
		},
	}
	o := newTestOrchestrator(t, store, history, responder, pub)

	res, err := o.HandleMessage(context.Background(), "", "approve me")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(pub.events) != 1 || pub.events[0] != "loan.sanctioned" {
		t.Fatalf("events = %v, want one loan.sanctioned", pub.events)
	}

	// the session is already sanctioned; another turn must not re-publish
	responder.mutate = nil
	if _, err := o.HandleMessage(context.Background(), res.SessionID, "thanks!"); err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events after second turn = %v", pub.events)
	}
}

func TestHandleMessagePublishFailureDoesNotFailTurn(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("broker down")}
	responder := &fakeResponder{
		reply: "Sanctioned!",
		mutate: func(sess *statex.SessionState) {
			sess.Advance(statex.StageSanction)
		},
	}
	o := newTestOrchestrator(t, newMemoryStore(), newMemoryHistory(), responder, pub)

	if _, err := o.HandleMessage(context.Background(), "", "approve me"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	history := newMemoryHistory()
	o := newTestOrchestrator(t, store, history, &fakeResponder{reply: "x"}, nil)

	res, err := o.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if !strings.HasPrefix(res.Message, "Namaste!") {
		t.Fatalf("greeting = %q", res.Message)
	}
	if _, ok := store.sessions[res.SessionID]; !ok {
		t.Fatal("session not persisted")
	}
	msgs := history.messages[res.SessionID]
	if len(msgs) != 1 || msgs[0].Role != "assistant" {
		t.Fatalf("greeting not logged: %v", msgs)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newMemoryStore(), newMemoryHistory(), &fakeResponder{reply: "x"}, nil)
	_, err := o.History(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestEndSessionSoftDeletes(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	history := newMemoryHistory()
	o := newTestOrchestrator(t, store, history, &fakeResponder{reply: "x"}, nil)

	res, err := o.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if err := o.EndSession(context.Background(), res.SessionID); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	sess := store.sessions[res.SessionID]
	if sess.Active {
		t.Fatal("session still active after EndSession")
	}
	if len(history.messages[res.SessionID]) == 0 {
		t.Fatal("conversation log was removed")
	}
}

func TestResponderFaultFailsTurn(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{err: errors.New("model unavailable")}
	o := newTestOrchestrator(t, newMemoryStore(), newMemoryHistory(), responder, nil)

	_, err := o.HandleMessage(context.Background(), "", "hello")
	if err == nil {
		t.Fatal("expected error from responder fault")
	}
}
