package ddbstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by errors returned when a write required an
	// existing record and there was none.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is matched by errors returned when a write required the
	// identity to be free and it was not.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidRecord is matched by errors returned for records that can not be stored.
	ErrInvalidRecord = errors.New("invalid record")
)

// AlreadyExistsError is returned by Put with RequireAbsent when a record
// already occupies the identity.
type AlreadyExistsError struct {
	Type         string
	PartitionKey string
	SortKey      string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key (%q, %q) already exists", typeOrRecord(e.Type), e.PartitionKey, e.SortKey)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// NotFoundError is returned by Delete with RequireExists when no record
// occupies the identity.
type NotFoundError struct {
	Type         string
	PartitionKey string
	SortKey      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key (%q, %q) not found", typeOrRecord(e.Type), e.PartitionKey, e.SortKey)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError describes why a record was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func typeOrRecord(t string) string {
	if t == "" {
		return "record"
	}
	return t
}
