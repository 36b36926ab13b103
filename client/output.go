package client

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sagarc03/storegate"
)

// Formatter formats results for output.
type Formatter interface {
	FormatGrant(w io.Writer, grant storegate.AccessGrant) error
	FormatUpload(w io.Writer, result storegate.UploadResult) error
	FormatCustomerSaved(w io.Writer, partitionKey, rowKey string) error
	FormatCustomer(w io.Writer, rec storegate.CustomerRecord) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text. In quiet mode only the value a
// script would capture is printed: the URI, the ETag, or the row key.
type HumanFormatter struct {
	Quiet bool
}

func (f *HumanFormatter) FormatGrant(w io.Writer, grant storegate.AccessGrant) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, grant.URI)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Grant: %s (%s)\n", grant.Object, grant.Permission)
	_, _ = fmt.Fprintf(w, "  URI: %s\n", grant.URI)
	_, _ = fmt.Fprintf(w, "  Expires: %s\n", grant.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (f *HumanFormatter) FormatUpload(w io.Writer, result storegate.UploadResult) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, result.ETag)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", result.Object, formatSize(result.BytesWritten))
	if result.ETag != "" {
		_, _ = fmt.Fprintf(w, "  ETag: %s\n", result.ETag)
	}
	return nil
}

func (f *HumanFormatter) FormatCustomerSaved(w io.Writer, partitionKey, rowKey string) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, rowKey)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Saved customer: %s/%s\n", partitionKey, rowKey)
	return nil
}

func (f *HumanFormatter) FormatCustomer(w io.Writer, rec storegate.CustomerRecord) error {
	_, _ = fmt.Fprintf(w, "%-14s %s\n", "Partition key:", rec.PartitionKey)
	_, _ = fmt.Fprintf(w, "%-14s %s\n", "Row key:", rec.RowKey)
	_, _ = fmt.Fprintf(w, "%-14s %s %s\n", "Name:", rec.FirstName, rec.LastName)
	_, _ = fmt.Fprintf(w, "%-14s %s\n", "Email:", rec.Email)
	_, _ = fmt.Fprintf(w, "%-14s %s\n", "Phone:", rec.PhoneNumber)
	if rec.Timestamp != nil && !f.Quiet {
		_, _ = fmt.Fprintf(w, "%-14s %s\n", "Saved at:", rec.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatGrant(w io.Writer, grant storegate.AccessGrant) error {
	return writeJSON(w, grant)
}

func (f *JSONFormatter) FormatUpload(w io.Writer, result storegate.UploadResult) error {
	return writeJSON(w, result)
}

func (f *JSONFormatter) FormatCustomerSaved(w io.Writer, partitionKey, rowKey string) error {
	return writeJSON(w, saveCustomerResponse{PartitionKey: partitionKey, RowKey: rowKey})
}

func (f *JSONFormatter) FormatCustomer(w io.Writer, rec storegate.CustomerRecord) error {
	return writeJSON(w, rec)
}

// FormatError formats an error as JSON, using the same error codes as the
// gateway's HTTP responses.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{
		Error:   storegate.ErrorKind(err),
		Message: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
