package stitcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type token struct {
	key    string
	offset int
}

// Stitch merges ordered segment transcripts into one text. The first segment is
// kept verbatim; every following segment loses its leading words that repeat the
// tail of the text accumulated so far.
func Stitch(ctx context.Context, results []domain.SegmentResult) (string, error) {
	var (
		b    strings.Builder
		tail []token
	)

	for i, r := range results {
		if !r.Succeeded() {
			return "", fmt.Errorf("stitching %s: segment did not succeed", r.Range)
		}
		if r.Index() != i {
			return "", fmt.Errorf("stitching: result at position %d belongs to segment %d", i, r.Index()+1)
		}

		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}

		current := tokenize(text)

		if b.Len() == 0 {
			b.WriteString(text)
			tail = current
			continue
		}

		n := overlapLength(tail, current)
		if n == 0 {
			slog.WarnContext(ctx, "No transcript overlap found at segment boundary", "segment", r.Index()+1)
		} else {
			slog.DebugContext(ctx, "Dropping duplicated words at segment boundary", "segment", r.Index()+1, "words", n)
		}

		if n == len(current) {
			continue
		}

		b.WriteByte(' ')
		b.WriteString(text[current[n].offset:])
		tail = append(tail, current[n:]...)
	}

	return b.String(), nil
}

// overlapLength returns the size of the longest suffix of prev equal to a prefix of next.
func overlapLength(prev, next []token) int {
	for n := min(len(prev), len(next)); n > 0; n-- {
		if equalKeys(prev[len(prev)-n:], next[:n]) {
			return n
		}
	}
	return 0
}

func equalKeys(a, b []token) bool {
	for i := range a {
		if a[i].key != b[i].key {
			return false
		}
	}
	return true
}

// tokenize splits text on whitespace, remembering where each word starts.
// Keys are lowercased with surrounding punctuation removed so "The," matches "the".
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, newToken(text[start:i], start))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, newToken(text[start:], start))
	}
	return tokens
}

func newToken(word string, offset int) token {
	key := strings.TrimFunc(strings.ToLower(word), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if key == "" {
		key = word
	}
	return token{key: key, offset: offset}
}
