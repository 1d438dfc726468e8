package service

import (
	"context"
	"strings"

	"soulspark/internal/generative"
	"soulspark/internal/models"
)

const maxChatMessageLength = 2000

// ChatResponder continues a companion conversation.
type ChatResponder interface {
	Chat(ctx context.Context, history []generative.ChatMessage, message string) string
}

// CompanionService runs the supportive chat companion.
type CompanionService struct {
	responder ChatResponder
}

func NewCompanionService(responder ChatResponder) *CompanionService {
	return &CompanionService{responder: responder}
}

// Greeting is the companion's opening message.
func (s *CompanionService) Greeting() generative.ChatMessage {
	return generative.ChatMessage{Role: "model", Text: generative.ChatGreeting}
}

// Reply answers message in the context of history.
func (s *CompanionService) Reply(ctx context.Context, history []generative.ChatMessage, message string) (generative.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return generative.ChatMessage{}, models.NewValidationError("Message cannot be empty")
	}
	if len(message) > maxChatMessageLength {
		return generative.ChatMessage{}, models.NewValidationError("Message is too long")
	}
	if s.responder == nil {
		return generative.ChatMessage{Role: "model", Text: generative.ChatFallback}, nil
	}
	return generative.ChatMessage{Role: "model", Text: s.responder.Chat(ctx, history, message)}, nil
}
