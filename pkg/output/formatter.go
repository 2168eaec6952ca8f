package output

import (
	"strings"
	"unicode/utf8"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

const (
	WrapWidth   = 80
	EmptyResult = "(empty result)"
)

// Delivery is a transcript ready to be sent: either inline Text or a File.
type Delivery struct {
	Text string
	File *domain.File
}

func (d Delivery) IsFile() bool {
	return d.File != nil
}

// Prepare wraps text for reading and decides between an inline message
// and a text attachment named after baseName.
func Prepare(text, baseName string) Delivery {
	wrapped := WrapText(text, WrapWidth)

	if utf8.RuneCountInString(wrapped) <= domain.MaxInlineTextLength {
		if wrapped == "" {
			wrapped = EmptyResult
		}
		return Delivery{Text: wrapped}
	}

	if baseName == "" {
		baseName = "transcription"
	}
	return Delivery{File: &domain.File{Name: baseName + ".txt", Data: []byte(wrapped)}}
}

// WrapText re-flows every line to at most width characters. Blank lines are
// kept as paragraph separators. Words longer than width are not split.
func WrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		var b strings.Builder
		lineLen := 0
		for _, w := range words {
			wl := utf8.RuneCountInString(w)
			switch {
			case lineLen == 0:
			case lineLen+1+wl > width:
				out = append(out, b.String())
				b.Reset()
				lineLen = 0
			default:
				b.WriteByte(' ')
				lineLen++
			}
			b.WriteString(w)
			lineLen += wl
		}
		out = append(out, b.String())
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Preview returns at most n characters of text and whether it was cut.
func Preview(text string, n int) (string, bool) {
	if utf8.RuneCountInString(text) <= n {
		return text, false
	}
	return string([]rune(text)[:n]), true
}
