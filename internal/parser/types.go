package parser

import "time"

// ParsedMessage is the structured form of one archived message file.
// It is built in a single pass over the raw bytes and never mutated
// afterwards.
type ParsedMessage struct {
	Subject     string
	Sender      string
	Recipient   string
	DateDisplay string
	DateSortKey time.Time
	HasDate     bool
	BodyText    string
	BodyHTML    string
	Attachments []Attachment
}

// Attachment is one named attachment part, in the order it appears
// within the message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
