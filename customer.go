package storegate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PartitionKey derives the partition for a customer from the upper-cased last
// and first names, joined by an underscore. strings.ToUpper applies the Unicode
// default case mapping, so the key does not depend on the process locale.
// Empty names produce empty segments.
func PartitionKey(firstName, lastName string) string {
	return strings.ToUpper(lastName) + "_" + strings.ToUpper(firstName)
}

// NewCustomerRecord builds a record with a derived partition key and a freshly
// generated row key. Two records built from identical names share a partition
// but never a row key.
func NewCustomerRecord(firstName, lastName, email, phoneNumber string) CustomerRecord {
	return CustomerRecord{
		PartitionKey: PartitionKey(firstName, lastName),
		RowKey:       uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PhoneNumber:  phoneNumber,
	}
}

// Validate checks that both halves of the composite key are present.
func (c CustomerRecord) Validate() error {
	if c.PartitionKey == "" {
		return fmt.Errorf("validate customer: %w: partition key cannot be empty", ErrInvalidInput)
	}
	if c.RowKey == "" {
		return fmt.Errorf("validate customer: %w: row key cannot be empty", ErrInvalidInput)
	}
	return nil
}
