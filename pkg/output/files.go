package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02_15-04-05"

// SaveTranscription writes text next to the source audio as
// <name>_transcription_<timestamp>.txt and returns the created path.
func SaveTranscription(text, sourcePath string, now time.Time) (string, error) {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	path := filepath.Join(filepath.Dir(sourcePath), fmt.Sprintf("%s_transcription_%s.txt", base, now.Format(timestampLayout)))

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("saving transcription: %w", err)
	}

	slog.Info("Transcription saved", "path", path)
	return path, nil
}

type BatchEntry struct {
	SourcePath string
	Text       string
}

// SaveBatch writes all entries into one batch_transcription_<timestamp>.txt in
// the directory of the first entry. Entries keep their order.
func SaveBatch(entries []BatchEntry, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no transcriptions to combine")
	}

	dir := filepath.Dir(entries[0].SourcePath)
	path := filepath.Join(dir, fmt.Sprintf("batch_transcription_%s.txt", now.Format(timestampLayout)))

	var b strings.Builder
	for i, e := range entries {
		b.WriteString(filepath.Base(e.SourcePath))
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(e.Text))
		b.WriteString("\n")
		if i != len(entries)-1 {
			b.WriteString("\n")
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("saving combined transcription: %w", err)
	}

	slog.Info("Combined transcription saved", "path", path, "files", len(entries))
	return path, nil
}
