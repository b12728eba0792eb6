package tgbot

import (
	"context"
	"sync"
)

// Storage keeps the active dialogues by chat identifiers. It must be safe for concurrent use with different chat
// identifiers.
type Storage[D any] interface {
	// Get returns the dialogue of the chat. It returns false if the chat has no active dialogue.
	Get(ctx context.Context, chatId int64) (D, bool, error)

	// Update replaces the dialogue of the chat
	Update(ctx context.Context, chatId int64, dialogue D) error

	// Remove deletes the dialogue of the chat if there is one
	Remove(ctx context.Context, chatId int64) error
}

// InMemStorage keeps dialogues in memory
type InMemStorage[D any] struct {
	mu        sync.Mutex
	dialogues map[int64]D
}

func NewInMemStorage[D any]() *InMemStorage[D] {
	return &InMemStorage[D]{
		dialogues: make(map[int64]D),
	}
}

func (s *InMemStorage[D]) Get(_ context.Context, chatId int64) (D, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dialogue, isFound := s.dialogues[chatId]
	return dialogue, isFound, nil
}

func (s *InMemStorage[D]) Update(_ context.Context, chatId int64, dialogue D) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dialogues[chatId] = dialogue
	return nil
}

func (s *InMemStorage[D]) Remove(_ context.Context, chatId int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.dialogues, chatId)
	return nil
}

// Len returns the number of active dialogues
func (s *InMemStorage[D]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dialogues)
}
