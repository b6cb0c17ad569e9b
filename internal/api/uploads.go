package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"foodviz/internal/domain"
)

// UploadField is the multipart field name the dashboard used for model uploads.
const UploadField = "model"

type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// UploadAsset sends a raw file to the cloud-upload endpoint and returns its public URL.
func (c *Client) UploadAsset(ctx context.Context, upload *domain.Upload) (string, error) {
	if upload.Empty() {
		return "", &domain.FieldError{Field: UploadField, Message: "file is required"}
	}
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if err := writeFile(mw, UploadField, upload); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: close multipart: %w", err)
	}
	raw, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/upload-to-cloud",
		body:        buf,
		contentType: mw.FormDataContentType(),
		auth:        true,
	})
	if err != nil {
		return "", err
	}
	var resp uploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("api: decode response: %w", err)
	}
	if !resp.Success || strings.TrimSpace(resp.URL) == "" {
		msg := resp.Message
		if msg == "" {
			msg = "upload was not accepted"
		}
		return "", &Error{Status: http.StatusOK, Message: msg, Kind: domain.ErrValidation}
	}
	c.logger.Info().Str("filename", upload.Filename).Str("url", resp.URL).Msg("api: asset uploaded")
	return resp.URL, nil
}

// Analytics returns the backend's analytics document as-is.
func (c *Client) Analytics(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/admin/analytics", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
