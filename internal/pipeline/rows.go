package pipeline

import "sort"

// Row is one overview-table row: the fixed header columns plus one cell
// per attachment slot, padded to the run-wide maximum.
type Row struct {
	From        string
	Date        string
	Title       string
	Attachments []AttachmentCell
}

// AttachmentCell is one attachment slot. Present is false for padding
// cells, which render as empty strings.
type AttachmentCell struct {
	Present  bool
	Filename string
	Key      string // blob key of the message the attachment belongs to
	Index    int    // position of the attachment within its message
}

// SortByDate orders messages newest first. Messages without a sort key
// sink to the end; their relative order is kept stable.
func SortByDate(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.HasDate != b.HasDate {
			return a.HasDate
		}
		if !a.HasDate {
			return false
		}
		return a.DateSortKey.After(b.DateSortKey)
	})
}

// BuildRows shapes sorted messages into presentation rows with
// maxAttachments attachment slots each.
func BuildRows(msgs []*Message, maxAttachments int) []Row {
	rows := make([]Row, 0, len(msgs))

	for _, msg := range msgs {
		row := Row{
			From:        msg.Sender,
			Date:        msg.DateDisplay,
			Title:       msg.Subject,
			Attachments: make([]AttachmentCell, maxAttachments),
		}

		for i, att := range msg.Attachments {
			if i >= maxAttachments {
				break
			}
			row.Attachments[i] = AttachmentCell{
				Present:  true,
				Filename: att.Filename,
				Key:      msg.Key,
				Index:    i,
			}
		}

		rows = append(rows, row)
	}

	return rows
}

// TotalAttachments counts attachments across all messages.
func TotalAttachments(msgs []*Message) int {
	total := 0
	for _, msg := range msgs {
		total += len(msg.Attachments)
	}
	return total
}
