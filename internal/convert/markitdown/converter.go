// Package markitdown implements models.Converter against a markitdown
// sidecar service over HTTP.
package markitdown

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"

	"github.com/docmark/docmark/internal/config"
	"github.com/docmark/docmark/pkg/models"
)

// Converter calls the markitdown sidecar. Per-request deadlines come from
// the caller's context; the client itself carries no timeout.
type Converter struct {
	baseURL string
	client  *http.Client
}

// NewConverter creates a markitdown-backed Converter.
func NewConverter(cfg config.MarkitdownConfig) *Converter {
	return &Converter{
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
	}
}

func (c *Converter) Name() string { return "markitdown" }

func (c *Converter) Convert(ctx context.Context, input models.ConversionInput) (*models.ConversionResult, error) {
	switch input.Kind {
	case models.KindFile:
		return c.convertFile(ctx, input)
	case models.KindText:
		return c.post(ctx, "/convert/text", textRequest{Content: string(input.Content), Options: input.Options})
	case models.KindURL:
		return c.post(ctx, "/convert/url", urlRequest{URL: input.URL, Options: input.Options})
	default:
		return nil, fmt.Errorf("%w: kind %q", models.ErrUnsupportedFormat, input.Kind)
	}
}

func (c *Converter) convertFile(ctx context.Context, input models.ConversionInput) (*models.ConversionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", input.Filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(input.Content); err != nil {
		return nil, fmt.Errorf("writing multipart body: %w", err)
	}
	for k, v := range input.Options {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert/file", &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req)
}

type textRequest struct {
	Content string            `json:"content"`
	Options map[string]string `json:"options,omitempty"`
}

type urlRequest struct {
	URL     string            `json:"url"`
	Options map[string]string `json:"options,omitempty"`
}

func (c *Converter) post(ctx context.Context, path string, payload any) (*models.ConversionResult, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

type convertResponse struct {
	Markdown     string `json:"markdown"`
	SourceFormat string `json:"source_format"`
}

func (c *Converter) do(req *http.Request) (*models.ConversionResult, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: status %d", models.ErrUnsupportedFormat, resp.StatusCode)
	case http.StatusBadGateway:
		return nil, fmt.Errorf("%w: status %d", models.ErrSourceFetch, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrConverterUnavailable, resp.StatusCode, body)
	}

	var out convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding converter response: %w", err)
	}
	if out.Markdown == "" {
		return nil, models.ErrEmptyResult
	}

	return &models.ConversionResult{
		Markdown:     out.Markdown,
		SourceFormat: out.SourceFormat,
	}, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrConversionTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrConversionTimeout, err)
	}

	return fmt.Errorf("%w: %v", models.ErrConverterUnavailable, err)
}

var _ models.Converter = (*Converter)(nil)
