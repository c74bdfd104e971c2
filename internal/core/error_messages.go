package core

// error_messages.go maps technical errors to short user-facing messages with
// a support code. Codes are grouped by prefix:
//
//	FILE001-FILE008  upload gating and CSV decoding
//	UPL001-UPL005    upload pipeline and request lifecycle
//	DB001-DB007      record/audit store failures
//	STAT001          query layer
//	RATE001          request throttling
//	ERR000           fallback; the server log has the underlying error
//
// Sentinel errors are matched with errors.Is first, then PostgreSQL errors by
// SQLSTATE. Other driver and network errors are matched by case-insensitive
// substring, first pattern wins.

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage is what a client sees for a failed request.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// Gating errors raised by the HTTP layer are declared here so the catalog
// and the handlers share one definition.
var (
	ErrNoFile          = errors.New("no file provided")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
	ErrUnexpectedField = errors.New("unexpected field")
)

var sentinelMessages = []sentinelMessage{
	{ErrNoFile, UserMessage{"No file was uploaded", "Send the CSV in a multipart field named \"file\"", "FILE001"}},
	{ErrInvalidFileType, UserMessage{"Only CSV files are allowed", "Upload a .csv file", "FILE002"}},
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE003"}},
	{ErrTooManyFiles, UserMessage{"Only one file can be uploaded at a time", "Upload files one by one", "FILE004"}},
	{ErrUnexpectedField, UserMessage{"File was sent under the wrong field name", "Use the multipart field name \"file\"", "FILE005"}},
	{ErrEmptyFile, UserMessage{"The uploaded file has no data rows", "Add at least one row below the header", "FILE006"}},
	{ErrParseFailed, UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with a header row", "FILE007"}},
	{ErrUnsupportedEncoding, UserMessage{"File encoding is not supported", "Save the file as UTF-8 or pass a known charset", "FILE008"}},
	{ErrTooManyUploads, UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{ErrBatchNotFound, UserMessage{"No audit records found for this batch", "Check the batch id returned by the upload", "STAT001"}},
}

var (
	msgDuplicateKey   = UserMessage{"A record with this employee ID already exists", "Remove duplicates from your CSV", "DB001"}
	msgCheckViolation = UserMessage{"A value was rejected by the database", "Review the failed rows and retry", "DB002"}
	msgUnavailable    = UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}
	msgDeadlock       = UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}
	msgStoreTimeout   = UserMessage{"Operation timed out", "Try uploading a smaller file or try again later", "DB006"}
)

// pgCodeMessages is keyed by SQLSTATE.
var pgCodeMessages = map[string]UserMessage{
	"23505": msgDuplicateKey,
	"23514": msgCheckViolation,
	"40P01": msgDeadlock,
	"57014": msgStoreTimeout,
	"53300": msgUnavailable,
	"57P03": msgUnavailable,
}

var errorPatterns = []errorPattern{
	{"duplicate key", msgDuplicateKey},
	{"violates check constraint", msgCheckViolation},
	{"connection refused", msgUnavailable},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", msgDeadlock},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try uploading a smaller file", "UPL005"}},
	{"timeout", msgStoreTimeout},
	{"persist batch", UserMessage{"Records could not be saved", "Please try again or contact support", "UPL001"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user message. A nil error maps to the zero value.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := pgCodeMessages[pgErr.Code]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
