package service

import (
	"context"
	"strings"
	"testing"

	"soulspark/internal/generative"
	"soulspark/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatStub struct {
	history []generative.ChatMessage
	message string
}

func (s *chatStub) Chat(_ context.Context, history []generative.ChatMessage, message string) string {
	s.history, s.message = history, message
	return "I'm listening."
}

func TestCompanionService(t *testing.T) {
	t.Parallel()
	stub := &chatStub{}
	svc := NewCompanionService(stub)

	assert.Equal(t, generative.ChatGreeting, svc.Greeting().Text)

	history := []generative.ChatMessage{{Role: "model", Text: generative.ChatGreeting}}
	reply, err := svc.Reply(context.Background(), history, "  rough day  ")
	require.NoError(t, err)
	assert.Equal(t, generative.ChatMessage{Role: "model", Text: "I'm listening."}, reply)
	assert.Equal(t, "rough day", stub.message)
	assert.Equal(t, history, stub.history)

	_, err = svc.Reply(context.Background(), nil, " ")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Reply(context.Background(), nil, strings.Repeat("a", maxChatMessageLength+1))
	assertCode(t, err, models.CodeValidation)

	offline, err := NewCompanionService(nil).Reply(context.Background(), nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, generative.ChatFallback, offline.Text)
}
