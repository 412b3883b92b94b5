package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/orchestrator"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

type fakeConversations struct {
	handleResult contractx.TurnResult
	handleErr    error
	startResult  contractx.TurnResult
	startErr     error
	historyMsgs  []statex.StoredMessage
	historyErr   error
	endErr       error

	gotSessionID string
	gotText      string
}

func (f *fakeConversations) HandleMessage(_ context.Context, sessionID, text string) (contractx.TurnResult, error) {
	f.gotSessionID = sessionID
	f.gotText = text
	return f.handleResult, f.handleErr
}

func (f *fakeConversations) StartSession(context.Context) (contractx.TurnResult, error) {
	return f.startResult, f.startErr
}

func (f *fakeConversations) History(_ context.Context, sessionID string) ([]statex.StoredMessage, error) {
	f.gotSessionID = sessionID
	return f.historyMsgs, f.historyErr
}

func (f *fakeConversations) EndSession(_ context.Context, sessionID string) error {
	f.gotSessionID = sessionID
	return f.endErr
}

func doRequest(t *testing.T, conv Conversations, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(conv)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{
		handleResult: contractx.TurnResult{
			Message:   "Sure, let me check your eligibility.",
			SessionID: "sess-1",
			Inputs: []contractx.DocumentRequirement{
				{Name: "Salary Slips", Description: "Salary slips for last 2 months"},
			},
		},
	}

	rec := doRequest(t, conv, http.MethodPost, "/chat", `{"session_id":"sess-1","message":"I need 5 lakh"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if conv.gotSessionID != "sess-1" || conv.gotText != "I need 5 lakh" {
		t.Fatalf("forwarded session=%q text=%q", conv.gotSessionID, conv.gotText)
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Sure, let me check your eligibility." {
		t.Fatalf("message = %q", resp.Message)
	}
	// clients are coded against the documented field name
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Fatalf("response body missing message field: %s", rec.Body.String())
	}
	if len(resp.Inputs) != 1 || resp.Inputs[0].Name != "Salary Slips" {
		t.Fatalf("inputs = %+v", resp.Inputs)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{handleErr: orchestrator.ErrInvalidMessage}
	rec := doRequest(t, conv, http.MethodPost, "/chat", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatInactiveSession(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{handleErr: orchestrator.ErrInactiveSession}
	rec := doRequest(t, conv, http.MethodPost, "/chat", `{"session_id":"sess-closed","message":"hi"}`)
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
}

func TestChatMalformedBody(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeConversations{}, http.MethodPost, "/chat", `{"message":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{
		startResult: contractx.TurnResult{SessionID: "sess-1", Message: orchestrator.Greeting},
	}
	rec := doRequest(t, conv, http.MethodPost, "/session", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "sess-1" {
		t.Fatalf("session id = %q", resp.SessionID)
	}
	if !strings.HasPrefix(resp.Greeting, "Namaste!") {
		t.Fatalf("greeting = %q", resp.Greeting)
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{
		historyMsgs: []statex.StoredMessage{
			{Role: "assistant", Content: "Namaste!", AgentType: "master"},
			{Role: "user", Content: "I need a loan"},
		},
	}
	rec := doRequest(t, conv, http.MethodGet, "/session/sess-1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if conv.gotSessionID != "sess-1" {
		t.Fatalf("forwarded session = %q", conv.gotSessionID)
	}

	var resp historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("messages = %+v", resp.Messages)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{historyErr: orchestrator.ErrSessionNotFound}
	rec := doRequest(t, conv, http.MethodGet, "/session/missing/history", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEndSession(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{}
	rec := doRequest(t, conv, http.MethodDelete, "/session/sess-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if conv.gotSessionID != "sess-1" {
		t.Fatalf("forwarded session = %q", conv.gotSessionID)
	}
}

func TestEndSessionUnknown(t *testing.T) {
	t.Parallel()

	conv := &fakeConversations{endErr: orchestrator.ErrSessionNotFound}
	rec := doRequest(t, conv, http.MethodDelete, "/session/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, &fakeConversations{}, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
