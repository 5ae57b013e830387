package core

import (
	"context"
	"time"
)

// Record is one registrant. It is written once and never modified.
type Record struct {
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Phone  string    `json:"phone"`
	City   string    `json:"city"`
	UserID string    `json:"userId"`
	Time   time.Time `json:"time"`
}

// ExportColumns is the fixed column order of every tabular export.
var ExportColumns = []string{"Name", "Email", "Phone", "City", "UserID", "Registration_Time"}

const (
	// ExportFilename is the attachment name of the admin download.
	ExportFilename = "RichWay_Members.xlsx"

	// XLSXContentType is the MIME type of an .xlsx workbook.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Store persists records.
type Store interface {
	// Append durably adds rec before returning.
	Append(ctx context.Context, rec Record) error

	// Export renders every stored record as an .xlsx workbook with
	// ExportColumns as the header row.
	Export(ctx context.Context) ([]byte, error)

	// Backend names the store variant ("file", "mongo", ...).
	Backend() string

	// Close releases the store's connection or handle.
	Close(ctx context.Context) error
}

// Lister is implemented by stores that can return all records, newest first.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// BestEffortStore is implemented by stores whose append failures must not
// fail a submission.
type BestEffortStore interface {
	BestEffort() bool
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ComposeFunc renders the welcome email for a freshly stored record.
type ComposeFunc func(ctx context.Context, rec Record) (Message, error)
