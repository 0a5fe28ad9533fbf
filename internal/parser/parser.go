package parser

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/shkkonda/eml-viewer/internal/dates"
)

// Placeholder values used when a header is absent.
const (
	PlaceholderSubject   = "No Subject"
	PlaceholderSender    = "Unknown Sender"
	PlaceholderRecipient = "Unknown Recipient"
	PlaceholderDate      = "Unknown Date"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// Parse decodes the raw bytes of one message file into a ParsedMessage.
// Any error during structural decoding is returned to the caller, which
// drops the message; a failure to extract a single attachment only skips
// that attachment. Parse performs no I/O.
func Parse(raw []byte) (*ParsedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	header := mr.Header

	parsed := &ParsedMessage{
		Subject:   headerOrDefault(header.Get("Subject"), PlaceholderSubject),
		Sender:    headerOrDefault(header.Get("From"), PlaceholderSender),
		Recipient: headerOrDefault(header.Get("To"), PlaceholderRecipient),
	}

	// The raw Date header goes through the normalizer; on failure the
	// raw text is displayed as-is with no sort key.
	rawDate := header.Get("Date")
	if rawDate == "" {
		rawDate = PlaceholderDate
	}
	parsed.DateDisplay, parsed.DateSortKey, parsed.HasDate = dates.Normalize(rawDate)

	// Walk every part of the message exactly once, including nested
	// multipart sections.
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			// Inline parts that still carry a filename count as
			// attachments.
			if filename, _ := (&mail.AttachmentHeader{Header: h.Header}).Filename(); filename != "" {
				contentType, _, _ := h.ContentType()
				appendAttachment(parsed, filename, contentType, part.Body)
				continue
			}

			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				// One unreadable body part does not fail the message.
				continue
			}

			// First qualifying part of each kind wins; later
			// alternatives are ignored.
			if strings.HasPrefix(contentType, "text/plain") {
				if parsed.BodyText == "" {
					parsed.BodyText = string(body)
				}
			} else if strings.HasPrefix(contentType, "text/html") {
				if parsed.BodyHTML == "" {
					parsed.BodyHTML = string(body)
				}
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			if filename == "" {
				// Attachment-like parts without a filename are ignored.
				continue
			}
			contentType, _, _ := h.ContentType()
			appendAttachment(parsed, filename, contentType, part.Body)
		}
	}

	return parsed, nil
}

// appendAttachment reads one attachment body and appends it. A failure
// to read the content skips this attachment without aborting the walk.
func appendAttachment(parsed *ParsedMessage, filename, contentType string, body io.Reader) {
	content, err := io.ReadAll(body)
	if err != nil {
		return
	}

	parsed.Attachments = append(parsed.Attachments, Attachment{
		Filename:    decodeMIMEWord(filename),
		ContentType: contentType,
		Content:     content,
	})
}

func headerOrDefault(value, fallback string) string {
	value = strings.TrimSpace(decodeMIMEWord(value))
	if value == "" {
		return fallback
	}
	return value
}

// decodeMIMEWord decodes MIME-encoded words (RFC 2047)
// Example: =?UTF-8?Q?Invitaci=C3=B3n?= -> Invitación
func decodeMIMEWord(s string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		// If decoding fails, return original string
		return s
	}
	return decoded
}
