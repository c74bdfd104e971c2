package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/hrdata/internal/core"
	"github.com/JonMunkholm/hrdata/internal/logging"
)

// uploadField is the only multipart field accepted for the CSV file.
const uploadField = "file"

// multipartOverhead is extra body allowance for boundaries and part headers.
const multipartOverhead = 1 << 20

var csvMIMETypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
}

type uploadedFile struct {
	name    string
	charset string
	data    []byte
}

type uploadStats struct {
	TotalRecords   int64  `json:"totalRecords"`
	ValidRecords   int64  `json:"validRecords"`
	InvalidRecords int64  `json:"invalidRecords"`
	SuccessRate    string `json:"successRate"`
}

type uploadDetails struct {
	ValidationSummary string   `json:"validationSummary"`
	Duplicates        []string `json:"duplicates,omitempty"`
	MissingColumns    []string `json:"missingColumns,omitempty"`
}

type uploadResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	BatchID  string        `json:"batchId"`
	FileName string        `json:"fileName"`
	Stats    uploadStats   `json:"stats"`
	Details  uploadDetails `json:"details"`
}

// handleUpload accepts one CSV file in the multipart field "file" and runs it
// through the pipeline.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, err := readUpload(r, maxSize)
	if err != nil {
		s.respondUploadGateError(w, r, err, maxSize)
		return
	}

	charset := file.charset
	if q := r.URL.Query().Get("encoding"); q != "" {
		charset = q
	}

	logging.FromContext(r.Context()).Info("processing file", "file", file.name, "bytes", len(file.data))

	result, err := s.service.ProcessUpload(r.Context(), core.UploadRequest{
		FileName: file.name,
		Body:     bytes.NewReader(file.data),
		Charset:  charset,
	})
	switch {
	case err == nil:
	case errors.Is(err, core.ErrEmptyFile):
		respondClientError(w, http.StatusBadRequest, "CSV file is empty or invalid", "")
		return
	case errors.Is(err, core.ErrUnsupportedEncoding):
		respondClientError(w, http.StatusBadRequest, "Unsupported file encoding", err.Error())
		return
	case errors.Is(err, core.ErrTooManyUploads):
		busy := core.MapError(err)
		w.Header().Set("Retry-After", "5")
		writeJSONStatus(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Server busy",
			Details: busy.Message,
			Code:    busy.Code,
		})
		return
	default:
		s.respondError(w, r, http.StatusInternalServerError, "Failed to process CSV file", err)
		return
	}

	writeJSON(w, uploadResponse{
		Success:  true,
		Message:  "CSV processed successfully",
		BatchID:  result.BatchID,
		FileName: result.FileName,
		Stats: uploadStats{
			TotalRecords:   result.TotalRecords,
			ValidRecords:   result.ValidRecords,
			InvalidRecords: result.InvalidRecords,
			SuccessRate:    result.SuccessRate,
		},
		Details: uploadDetails{
			ValidationSummary: result.ValidationSummary(),
			Duplicates:        result.Duplicates,
			MissingColumns:    result.MissingColumns,
		},
	})
}

func (s *Server) respondUploadGateError(w http.ResponseWriter, r *http.Request, err error, maxSize int64) {
	logging.FromContext(r.Context()).Warn("upload rejected", "error", err)

	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		respondClientError(w, http.StatusBadRequest, "File too large", fmt.Sprintf("Maximum file size is %d bytes", maxSize))
	case errors.Is(err, core.ErrTooManyFiles):
		respondClientError(w, http.StatusBadRequest, "Too many files", "Only one file can be uploaded at a time")
	case errors.Is(err, core.ErrUnexpectedField):
		respondClientError(w, http.StatusBadRequest, "Unexpected field", `File must be uploaded with field name "file"`)
	case errors.Is(err, core.ErrInvalidFileType):
		respondClientError(w, http.StatusBadRequest, "Invalid file type. Only CSV files are allowed.", "")
	default:
		respondClientError(w, http.StatusBadRequest, "No file uploaded. Please upload a CSV file.", "")
	}
}

// readUpload walks every part of a multipart body and returns the single CSV
// file in it. Non-file fields are drained and ignored.
func readUpload(r *http.Request, maxSize int64) (*uploadedFile, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrNoFile, err)
	}

	var file *uploadedFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyBodyError(err)
		}

		if part.FileName() == "" {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, classifyBodyError(err)
			}
			continue
		}

		if part.FormName() != uploadField {
			return nil, fmt.Errorf("%w: %q", core.ErrUnexpectedField, part.FormName())
		}
		if file != nil {
			return nil, core.ErrTooManyFiles
		}

		file, err = readFilePart(part, maxSize)
		if err != nil {
			return nil, err
		}
	}

	if file == nil {
		return nil, core.ErrNoFile
	}
	return file, nil
}

func readFilePart(part *multipart.Part, maxSize int64) (*uploadedFile, error) {
	name := filepath.Base(part.FileName())
	mediaType, params, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))

	if !isCSV(name, mediaType) {
		return nil, fmt.Errorf("%w: %s (%s)", core.ErrInvalidFileType, name, mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(part, maxSize+1))
	if err != nil {
		return nil, classifyBodyError(err)
	}
	if int64(len(data)) > maxSize {
		return nil, core.ErrFileTooLarge
	}

	return &uploadedFile{name: name, charset: params["charset"], data: data}, nil
}

// isCSV accepts a .csv extension or a CSV MIME type; either is enough.
func isCSV(name, mediaType string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv") || csvMIMETypes[strings.ToLower(mediaType)]
}

func classifyBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return core.ErrFileTooLarge
	}
	return fmt.Errorf("%w: %w", core.ErrNoFile, err)
}
