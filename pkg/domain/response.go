package domain

// Response is a message delivered back to a chat.
type Response struct {
	ChatID int64
	// Text is sent as plain text unless HTML is set.
	Text string
	HTML bool
	File *File
	// EditMessageID replaces the text of an already sent message instead of sending a new one.
	EditMessageID int
}

type File struct {
	Name string
	Data []byte
}
