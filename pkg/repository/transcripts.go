package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type transcriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) *transcriptRepository {
	return &transcriptRepository{db: db}
}

func (t *transcriptRepository) Save(ctx context.Context, record domain.TranscriptRecord) error {
	const query = `
		INSERT INTO transcripts (run_id, chat_id, source_name, duration_ms, segments, failed_segments, status, text_length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id)
		DO UPDATE SET
			failed_segments = EXCLUDED.failed_segments,
			status = EXCLUDED.status,
			text_length = EXCLUDED.text_length
	`

	_, err := t.db.ExecContext(ctx, query,
		record.RunID,
		record.ChatID,
		record.SourceName,
		record.Duration.Milliseconds(),
		record.Segments,
		joinIndices(record.FailedSegments),
		string(record.Status),
		record.TextLength,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving transcript record: %w", err)
	}

	return nil
}

func (t *transcriptRepository) GetByChatID(ctx context.Context, chatID int64, limit int) ([]domain.TranscriptRecord, error) {
	const query = `
		SELECT run_id, chat_id, source_name, duration_ms, segments, failed_segments, status, text_length, created_at
		FROM transcripts
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := t.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching transcripts by chatID: %w", err)
	}
	defer rows.Close()

	var records []domain.TranscriptRecord
	for rows.Next() {
		var (
			r          domain.TranscriptRecord
			durationMs int64
			failed     string
			status     string
		)
		if err := rows.Scan(&r.RunID, &r.ChatID, &r.SourceName, &durationMs, &r.Segments, &failed, &status, &r.TextLength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transcript record: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Status = domain.RunStatus(status)
		if r.FailedSegments, err = splitIndices(failed); err != nil {
			return nil, fmt.Errorf("parsing failed segments of %s: %w", r.RunID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcript records: %w", err)
	}

	return records, nil
}

func joinIndices(idx []int) string {
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ",")
}

func splitIndices(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	idx := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}
	return idx, nil
}
