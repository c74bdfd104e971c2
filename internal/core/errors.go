package core

import "errors"

// Sentinel errors returned by the upload pipeline and query layer.
// Messages double as MapError patterns, so keep them lowercase and stable.
var (
	// ErrEmptyFile means the upload decoded to zero data rows.
	ErrEmptyFile = errors.New("empty file: no data rows")

	// ErrParseFailed wraps a malformed CSV stream.
	ErrParseFailed = errors.New("invalid csv")

	// ErrUnsupportedEncoding is returned for an unknown charset label.
	ErrUnsupportedEncoding = errors.New("encoding error: unsupported charset")

	// ErrPersistFailed wraps any store failure other than a uniqueness conflict.
	ErrPersistFailed = errors.New("persist batch")

	// ErrBatchNotFound is returned when a batch has no audit records.
	ErrBatchNotFound = errors.New("batch not found")
)
