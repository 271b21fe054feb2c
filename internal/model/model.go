// Package model defines the canonical conversation representation that
// provider parsers hand to the archive. All timestamps are epoch
// milliseconds; 0 means unknown.
package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// Sender identifies who authored a message turn.
type Sender string

const (
	SenderHuman     Sender = "human"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the two supported sender values.
func (s Sender) Valid() bool {
	return s == SenderHuman || s == SenderAssistant
}

// DefaultTitle is used when a conversation has no title.
const DefaultTitle = "Untitled"

// Conversation is one imported chat thread with its ordered messages.
type Conversation struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"externalId"`
	Source       string    `json:"source"`
	Title        string    `json:"title"`
	CreatedAt    int64     `json:"createdAt"`
	UpdatedAt    int64     `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	Messages     []Message `json:"messages"`
}

// DisplayTitle returns the title, or DefaultTitle when absent.
func (c *Conversation) DisplayTitle() string {
	if c.Title == "" {
		return DefaultTitle
	}
	return c.Title
}

// Message is one turn within a conversation.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Sender         Sender `json:"sender"`
	Content        string `json:"content"`
	CreatedAt      int64  `json:"createdAt"`
}

// DecodeConversations reads a canonical-format JSON array of conversations,
// as produced by the provider parsers. It validates the guarantees the
// import writer relies on: non-empty ids, non-empty message content, and a
// known sender value.
func DecodeConversations(r io.Reader) ([]Conversation, error) {
	var convs []Conversation
	dec := json.NewDecoder(r)
	if err := dec.Decode(&convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	for i := range convs {
		if err := validateConversation(&convs[i]); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func validateConversation(c *Conversation) error {
	if c.ID == "" {
		return fmt.Errorf("conversation missing id")
	}
	if c.Source == "" {
		return fmt.Errorf("conversation %s: missing source", c.ID)
	}
	for j := range c.Messages {
		m := &c.Messages[j]
		if m.ID == "" {
			return fmt.Errorf("conversation %s: message %d missing id", c.ID, j)
		}
		if m.Content == "" {
			return fmt.Errorf("conversation %s: message %s has empty content", c.ID, m.ID)
		}
		if !m.Sender.Valid() {
			return fmt.Errorf("conversation %s: message %s has invalid sender %q", c.ID, m.ID, m.Sender)
		}
	}
	return nil
}
