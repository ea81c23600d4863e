package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	cherrors "github.com/alexjbarnes/teamchat/internal/errors"
)

// maxUploadBytes is the attachment size ceiling enforced client-side
// before any bytes hit the wire (50MB, matching the backend limit).
const maxUploadBytes = 50 * 1024 * 1024

// progressReader counts bytes as the HTTP transport consumes the
// request body and reports a 0-100 percentage. The percentage is UI
// feedback only; correctness never depends on it.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.onProgress != nil && p.total > 0 {
		p.sent += int64(n)

		pct := int(p.sent * 100 / p.total)
		if pct > 100 {
			pct = 100
		}

		p.onProgress(pct)
	}

	return n, err
}

// Upload sends a file as multipart form data and returns the stored
// file's URL, server-assigned name, and type. onProgress, if non-nil,
// receives upload percentages as the body is consumed.
func (c *Client) Upload(ctx context.Context, fileName string, content []byte, onProgress func(pct int)) (*UploadResult, error) {
	if len(content) > maxUploadBytes {
		return nil, cherrors.ErrFileTooLarge
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}

	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	body := &progressReader{
		r:          &buf,
		total:      int64(buf.Len()),
		onProgress: onProgress,
	}

	// The upload endpoint predates the /api/v1 prefix and lives at /api/upload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = body.total

	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("uploading file: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError("/api/upload", resp.StatusCode, respBody)
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}

	return &result, nil
}

// Download streams a stored file by its server-assigned name. The
// caller owns the returned reader and must close it.
func (c *Client) Download(ctx context.Context, storedName string) (io.ReadCloser, string, error) {
	endpoint := "/download/" + url.PathEscape(storedName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating download request: %w", err)
	}

	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, "", &TransientError{Err: fmt.Errorf("downloading file: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
		resp.Body.Close()

		return nil, "", c.statusError(endpoint, resp.StatusCode, body)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}
