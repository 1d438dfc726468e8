package server

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

type stubGenerator struct {
	mu     sync.Mutex
	config *genai.GenerateContentConfig
	resp   *genai.GenerateContentResponse
	err    error
}

func (s *stubGenerator) GenerateContent(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	return s.resp, s.err
}
