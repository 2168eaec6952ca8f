package repository

import (
	"context"
	"sync"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

const maxRecordsPerChat = 100

// memoryTranscriptRepository keeps the most recent records per chat in process memory.
type memoryTranscriptRepository struct {
	mu      sync.RWMutex
	records map[int64][]domain.TranscriptRecord
}

func NewMemoryTranscriptRepository() *memoryTranscriptRepository {
	return &memoryTranscriptRepository{
		records: make(map[int64][]domain.TranscriptRecord),
	}
}

func (m *memoryTranscriptRepository) Save(_ context.Context, record domain.TranscriptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chatRecords := m.records[record.ChatID]
	for i := range chatRecords {
		if chatRecords[i].RunID == record.RunID {
			chatRecords[i] = record
			return nil
		}
	}

	chatRecords = append(chatRecords, record)
	if len(chatRecords) > maxRecordsPerChat {
		chatRecords = chatRecords[len(chatRecords)-maxRecordsPerChat:]
	}
	m.records[record.ChatID] = chatRecords

	return nil
}

// GetByChatID returns up to limit records, newest first.
func (m *memoryTranscriptRepository) GetByChatID(_ context.Context, chatID int64, limit int) ([]domain.TranscriptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chatRecords := m.records[chatID]
	out := make([]domain.TranscriptRecord, 0, min(limit, len(chatRecords)))
	for i := len(chatRecords) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, chatRecords[i])
	}

	return out, nil
}
