package domain

import "time"

// AudioSource is a probed input file. It is not modified after probing.
type AudioSource struct {
	Path     string
	Name     string
	Format   string
	Duration time.Duration
}

type AudioKind int

const (
	AudioVoice AudioKind = iota
	AudioTrack
	AudioDocument
)

// AudioFile is an audio attachment received by the bot, not yet downloaded.
type AudioFile struct {
	ChatID   int64
	FileID   string
	FileName string
	MimeType string
	Size     int64
	Kind     AudioKind
}
