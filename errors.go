package logistics

import "errors"

var (
	// ErrOrderNotFound is returned when an order ID does not exist.
	ErrOrderNotFound = errors.New("logistics: order not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("logistics: unsupported document format")

	// ErrParsingFailed is returned when text extraction from a document fails.
	ErrParsingFailed = errors.New("logistics: parsing failed")

	// ErrEmptyDocument is returned when a document has no extractable text,
	// as with scanned notes.
	ErrEmptyDocument = errors.New("logistics: document has no text")

	// ErrStoreClosed is returned when operating on a closed engine.
	ErrStoreClosed = errors.New("logistics: store is closed")

	// ErrInvalidStatus is returned for a status outside the workflow.
	ErrInvalidStatus = errors.New("logistics: invalid order status")

	// ErrInvalidField is returned when an update names a read-only field.
	ErrInvalidField = errors.New("logistics: field cannot be updated")

	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("logistics: document too large")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("logistics: invalid configuration")
)
