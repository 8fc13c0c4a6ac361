package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmark/docmark/internal/api/handler"
	mw "github.com/docmark/docmark/internal/api/middleware"
	"github.com/docmark/docmark/internal/convert"
	"github.com/docmark/docmark/internal/convert/mock"
	"github.com/docmark/docmark/internal/ratelimit"
	"github.com/docmark/docmark/pkg/models"
)

func governedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req = mw.WithIdentity(req, &models.Identity{KeyID: uuid.New(), UserID: uuid.New(), Role: models.RoleUser})
	return mw.WithAdmission(req, ratelimit.Decision{
		Allowed:   true,
		Limit:     10,
		Remaining: 9,
		ResetAt:   time.Now().Add(time.Minute),
	})
}

func textBody(content string) *bytes.Buffer {
	return bytes.NewBufferString(`{"content": ` + jsonString(content) + `}`)
}

func jsonString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, err := mpw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())
	return &buf, mpw.FormDataContentType()
}

func TestConvertText_Success(t *testing.T) {
	mc := mock.NewMockConverter()
	rec := &mockRecorder{}
	h := handler.NewConvert(mc, rec, time.Minute, 10<<20)

	req := governedRequest("POST", "/api/v1/convert/text", textBody("# hello"))
	w := httptest.NewRecorder()
	h.Text(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.NotEmpty(t, data["markdown"])

	require.Len(t, mc.Calls(), 1)
	assert.Equal(t, models.KindText, mc.Calls()[0].Kind)

	events := rec.byAction(models.ActionConversionSucceeded)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditSuccess, events[0].Status)
	assert.Equal(t, "text", events[0].Metadata["kind"])
	assert.Equal(t, 10, events[0].Metadata["limit"])
}

func TestConvertText_EmptyContent(t *testing.T) {
	mc := mock.NewMockConverter()
	rec := &mockRecorder{}
	h := handler.NewConvert(mc, rec, time.Minute, 10<<20)

	req := governedRequest("POST", "/api/v1/convert/text", bytes.NewBufferString(`{"content": ""}`))
	w := httptest.NewRecorder()
	h.Text(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w)["code"])
	assert.Empty(t, mc.Calls())
	assert.Empty(t, rec.all())
}

func TestConvertText_InvalidJSON(t *testing.T) {
	mc := mock.NewMockConverter()
	h := handler.NewConvert(mc, &mockRecorder{}, time.Minute, 10<<20)

	req := governedRequest("POST", "/api/v1/convert/text", bytes.NewBufferString(`{not json`))
	w := httptest.NewRecorder()
	h.Text(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mc.Calls())
}

func TestConvertText_NoIdentity(t *testing.T) {
	h := handler.NewConvert(mock.NewMockConverter(), &mockRecorder{}, time.Minute, 10<<20)

	req := httptest.NewRequest("POST", "/api/v1/convert/text", textBody("hello"))
	w := httptest.NewRecorder()
	h.Text(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConvertFile_Success(t *testing.T) {
	mc := mock.NewMockConverter()
	rec := &mockRecorder{}
	h := handler.NewConvert(mc, rec, time.Minute, 10<<20)

	body, contentType := multipartBody(t, "report.pdf", []byte("%PDF-1.4 fake"))
	req := governedRequest("POST", "/api/v1/convert/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.File(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mc.Calls(), 1)
	assert.Equal(t, models.KindFile, mc.Calls()[0].Kind)
	assert.Equal(t, "report.pdf", mc.Calls()[0].Filename)

	events := rec.byAction(models.ActionConversionSucceeded)
	require.Len(t, events, 1)
	assert.Equal(t, "report.pdf", events[0].Metadata["filename"])
	assert.Equal(t, len("%PDF-1.4 fake"), events[0].Metadata["size_bytes"])
}

func TestConvertFile_TooLarge(t *testing.T) {
	mc := mock.NewMockConverter()
	rec := &mockRecorder{}
	h := handler.NewConvert(mc, rec, time.Minute, 64)

	body, contentType := multipartBody(t, "big.bin", bytes.Repeat([]byte("x"), 1024))
	req := governedRequest("POST", "/api/v1/convert/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.File(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, w)["code"])
	assert.Empty(t, mc.Calls())
}

func TestConvertFile_MissingFileField(t *testing.T) {
	h := handler.NewConvert(mock.NewMockConverter(), &mockRecorder{}, time.Minute, 10<<20)

	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	require.NoError(t, mpw.WriteField("other", "value"))
	require.NoError(t, mpw.Close())

	req := governedRequest("POST", "/api/v1/convert/file", &buf)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	w := httptest.NewRecorder()
	h.File(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvertFile_EmptyFile(t *testing.T) {
	h := handler.NewConvert(mock.NewMockConverter(), &mockRecorder{}, time.Minute, 10<<20)

	body, contentType := multipartBody(t, "empty.txt", nil)
	req := governedRequest("POST", "/api/v1/convert/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.File(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvertURL_Success(t *testing.T) {
	mc := mock.NewMockConverter()
	rec := &mockRecorder{}
	h := handler.NewConvert(mc, rec, time.Minute, 10<<20)

	req := governedRequest("POST", "/api/v1/convert/url",
		bytes.NewBufferString(`{"url": "https://example.com/doc.html"}`))
	w := httptest.NewRecorder()
	h.URL(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mc.Calls(), 1)
	assert.Equal(t, models.KindURL, mc.Calls()[0].Kind)
	assert.Equal(t, "https://example.com/doc.html", mc.Calls()[0].URL)

	events := rec.byAction(models.ActionConversionSucceeded)
	require.Len(t, events, 1)
	assert.Equal(t, "https://example.com/doc.html", events[0].Metadata["url"])
}

func TestConvertURL_BadScheme(t *testing.T) {
	mc := mock.NewMockConverter()
	h := handler.NewConvert(mc, &mockRecorder{}, time.Minute, 10<<20)

	req := governedRequest("POST", "/api/v1/convert/url",
		bytes.NewBufferString(`{"url": "ftp://example.com/doc"}`))
	w := httptest.NewRecorder()
	h.URL(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mc.Calls())
}

func TestConvert_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unsupported format", convert.ErrUnsupportedFormat, http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT"},
		{"empty result", convert.ErrEmptyResult, http.StatusUnprocessableEntity, "EMPTY_RESULT"},
		{"source fetch", convert.ErrSourceFetch, http.StatusBadGateway, "SOURCE_FETCH_FAILED"},
		{"backend down", convert.ErrConverterUnavailable, http.StatusBadGateway, "CONVERTER_UNAVAILABLE"},
		{"timeout", convert.ErrConversionTimeout, http.StatusGatewayTimeout, "CONVERSION_TIMEOUT"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			h := handler.NewConvert(mock.NewFailingConverter(tt.err), rec, time.Minute, 10<<20)

			req := governedRequest("POST", "/api/v1/convert/text", textBody("hello"))
			w := httptest.NewRecorder()
			h.Text(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w)["code"])

			failed := rec.byAction(models.ActionConversionFailed)
			require.Len(t, failed, 1)
			assert.Equal(t, models.AuditFailure, failed[0].Status)
			assert.NotEmpty(t, failed[0].Metadata["error"])
		})
	}
}

func TestConvert_DeadlineCancelsConverter(t *testing.T) {
	rec := &mockRecorder{}
	h := handler.NewConvert(mock.NewTimeoutConverter(), rec, 50*time.Millisecond, 10<<20)

	req := governedRequest("POST", "/api/v1/convert/text", textBody("hello"))
	w := httptest.NewRecorder()

	start := time.Now()
	h.Text(w, req)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.Len(t, rec.byAction(models.ActionConversionFailed), 1)
}

func TestConvert_OneTerminalEventPerRequest(t *testing.T) {
	mc := mock.NewMockConverter()
	rec := &mockRecorder{}
	h := handler.NewConvert(mc, rec, time.Minute, 10<<20)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.Text(w, governedRequest("POST", "/api/v1/convert/text", textBody("hello")))
		require.Equal(t, http.StatusOK, w.Code)
	}

	terminal := 0
	for _, e := range rec.all() {
		if e.Action == models.ActionConversionSucceeded || e.Action == models.ActionConversionFailed {
			terminal++
		}
	}
	assert.Equal(t, 3, terminal)
}
