package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	mw "github.com/docmark/docmark/internal/api/middleware"
	"github.com/docmark/docmark/internal/api/response"
	"github.com/docmark/docmark/internal/audit"
	"github.com/docmark/docmark/internal/convert"
	"github.com/docmark/docmark/pkg/models"
)

// Convert serves the three governed conversion endpoints. Each request has
// already passed identity resolution and admission; this handler invokes the
// external converter under a deadline and records exactly one terminal audit
// event per admitted request.
type Convert struct {
	converter   models.Converter
	recorder    audit.Recorder
	timeout     time.Duration
	maxFileSize int64
}

// NewConvert creates the conversion handlers.
func NewConvert(c models.Converter, rec audit.Recorder, timeout time.Duration, maxFileSize int64) *Convert {
	return &Convert{converter: c, recorder: rec, timeout: timeout, maxFileSize: maxFileSize}
}

// File handles POST /api/v1/convert/file (multipart upload).
func (h *Convert) File(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge,
				"FILE_TOO_LARGE", "Uploaded file exceeds the size limit", nil)
			return
		}
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid multipart body", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "file field is required", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Failed to read uploaded file", nil)
		return
	}
	if len(content) == 0 {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Uploaded file is empty", nil)
		return
	}

	h.run(w, r, models.ConversionInput{
		Kind:     models.KindFile,
		Filename: header.Filename,
		Content:  content,
		Options:  formOptions(r),
	})
}

// Text handles POST /api/v1/convert/text.
func (h *Convert) Text(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string            `json:"content"`
		Options map[string]string `json:"options"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxFileSize)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Content == "" {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "content is required", nil)
		return
	}

	h.run(w, r, models.ConversionInput{
		Kind:    models.KindText,
		Content: []byte(req.Content),
		Options: req.Options,
	})
}

// URL handles POST /api/v1/convert/url.
func (h *Convert) URL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL     string            `json:"url"`
		Options map[string]string `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.URL == "" {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "url is required", nil)
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		response.Error(w, http.StatusBadRequest,
			"INVALID_REQUEST", "url must be a valid http or https URL", nil)
		return
	}

	h.run(w, r, models.ConversionInput{
		Kind:    models.KindURL,
		URL:     req.URL,
		Options: req.Options,
	})
}

// run invokes the converter under the configured deadline and records the
// terminal audit event. A timeout counts as failure; the quota unit consumed
// at admission is not refunded on any outcome.
func (h *Convert) run(w http.ResponseWriter, r *http.Request, input models.ConversionInput) {
	id, ok := mw.GetIdentity(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized,
			"MISSING_API_KEY", "Missing identity", nil)
		return
	}
	admission, _ := mw.GetAdmission(r)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	start := time.Now()
	result, err := h.converter.Convert(ctx, input)
	elapsed := time.Since(start)

	meta := map[string]any{
		"kind":        string(input.Kind),
		"duration_ms": elapsed.Milliseconds(),
		"limit":       admission.Limit,
		"remaining":   admission.Remaining,
	}
	if input.Kind == models.KindFile {
		meta["filename"] = input.Filename
		meta["size_bytes"] = len(input.Content)
	}
	if input.Kind == models.KindURL {
		meta["url"] = input.URL
	}

	if err != nil {
		meta["error"] = err.Error()
		h.recorder.Record(models.AuditEvent{
			Actor:    id.Actor(),
			Action:   models.ActionConversionFailed,
			Status:   models.AuditFailure,
			Metadata: meta,
		})
		writeConversionError(w, err)
		return
	}

	if result.SourceFormat != "" {
		meta["source_format"] = result.SourceFormat
	}
	h.recorder.Record(models.AuditEvent{
		Actor:    id.Actor(),
		Action:   models.ActionConversionSucceeded,
		Status:   models.AuditSuccess,
		Metadata: meta,
	})

	response.JSON(w, convertResponse{
		Markdown:     result.Markdown,
		SourceFormat: result.SourceFormat,
	})
}

type convertResponse struct {
	Markdown     string `json:"markdown"`
	SourceFormat string `json:"source_format,omitempty"`
}

func writeConversionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, convert.ErrUnsupportedFormat):
		response.Error(w, http.StatusUnprocessableEntity,
			"UNSUPPORTED_FORMAT", "The input format is not supported", nil)
	case errors.Is(err, convert.ErrEmptyResult):
		response.Error(w, http.StatusUnprocessableEntity,
			"EMPTY_RESULT", "Conversion produced no content", nil)
	case errors.Is(err, convert.ErrSourceFetch):
		response.Error(w, http.StatusBadGateway,
			"SOURCE_FETCH_FAILED", "Failed to fetch the source URL", nil)
	case errors.Is(err, convert.ErrConversionTimeout), errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout,
			"CONVERSION_TIMEOUT", "Conversion took too long and was cancelled", nil)
	case errors.Is(err, convert.ErrConverterUnavailable):
		response.Error(w, http.StatusBadGateway,
			"CONVERTER_UNAVAILABLE", "The conversion backend is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

// formOptions collects non-file form fields as converter options.
func formOptions(r *http.Request) map[string]string {
	if r.MultipartForm == nil || len(r.MultipartForm.Value) == 0 {
		return nil
	}
	opts := make(map[string]string, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 && !strings.EqualFold(k, "file") {
			opts[k] = v[0]
		}
	}
	return opts
}
