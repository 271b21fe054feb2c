package model

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDisplayTitle(t *testing.T) {
	c := Conversation{Title: "Budget Planning"}
	if got := c.DisplayTitle(); got != "Budget Planning" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	c.Title = ""
	if got := c.DisplayTitle(); got != DefaultTitle {
		t.Errorf("DisplayTitle() = %q, want %q", got, DefaultTitle)
	}
}

func TestSenderValid(t *testing.T) {
	if !SenderHuman.Valid() || !SenderAssistant.Valid() {
		t.Error("canonical senders should be valid")
	}
	if Sender("system").Valid() || Sender("").Valid() {
		t.Error("unknown senders should be invalid")
	}
}

func TestDecodeConversations(t *testing.T) {
	input := `[
		{
			"id": "c1",
			"source": "claude",
			"title": "Budget Planning",
			"createdAt": 1700000000000,
			"updatedAt": 1700000500000,
			"messages": [
				{"id": "m1", "conversationId": "c1", "sender": "human", "content": "What about salary?", "createdAt": 1700000000000},
				{"id": "m2", "conversationId": "c1", "sender": "assistant", "content": "Salary bands depend on level.", "createdAt": 1700000100000}
			]
		}
	]`

	convs, err := DecodeConversations(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeConversations() error = %v", err)
	}

	want := []Conversation{{
		ID:        "c1",
		Source:    "claude",
		Title:     "Budget Planning",
		CreatedAt: 1700000000000,
		UpdatedAt: 1700000500000,
		Messages: []Message{
			{ID: "m1", ConversationID: "c1", Sender: SenderHuman, Content: "What about salary?", CreatedAt: 1700000000000},
			{ID: "m2", ConversationID: "c1", Sender: SenderAssistant, Content: "Salary bands depend on level.", CreatedAt: 1700000100000},
		},
	}}
	if diff := cmp.Diff(want, convs); diff != "" {
		t.Errorf("conversations mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeConversationsValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			"missing conversation id",
			`[{"source": "claude", "messages": []}]`,
			"missing id",
		},
		{
			"missing source",
			`[{"id": "c1", "messages": []}]`,
			"missing source",
		},
		{
			"missing message id",
			`[{"id": "c1", "source": "claude", "messages": [{"sender": "human", "content": "hi"}]}]`,
			"missing id",
		},
		{
			"empty content",
			`[{"id": "c1", "source": "claude", "messages": [{"id": "m1", "sender": "human", "content": ""}]}]`,
			"empty content",
		},
		{
			"bad sender",
			`[{"id": "c1", "source": "claude", "messages": [{"id": "m1", "sender": "robot", "content": "hi"}]}]`,
			"invalid sender",
		},
		{
			"not json",
			`{{{`,
			"decode conversations",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConversations(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
