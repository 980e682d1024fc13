// Package client is a small HTTP client for the inventory API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/models"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// ==========================
// Records
// ==========================

func (c *Client) List(ctx context.Context, q string, offset, limit int) ([]models.Record, error) {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/inventory"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out []models.Record
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id string) (models.Record, error) {
	var out models.Record
	err := c.doJSON(ctx, http.MethodGet, recordPath(id), nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, fields map[string]string) (models.Record, error) {
	var out models.Record
	err := c.doJSON(ctx, http.MethodPost, "/api/inventory", fields, &out)
	return out, err
}

// Update replaces the record; omitted fields are cleared server-side.
func (c *Client) Update(ctx context.Context, id string, fields map[string]string) (models.Record, error) {
	var out models.Record
	err := c.doJSON(ctx, http.MethodPut, recordPath(id), fields, &out)
	return out, err
}

func (c *Client) Patch(ctx context.Context, id string, fields map[string]string) (models.Record, error) {
	var out models.Record
	err := c.doJSON(ctx, http.MethodPatch, recordPath(id), fields, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, recordPath(id), nil, nil)
}

func (c *Client) BulkDelete(ctx context.Context, ids []string) (inventory.BulkDeleteResult, error) {
	var out inventory.BulkDeleteResult
	err := c.doJSON(ctx, http.MethodPost, "/api/inventory/bulk-delete", map[string][]string{"ids": ids}, &out)
	return out, err
}

// ==========================
// Files
// ==========================

func (c *Client) Import(ctx context.Context, filename string, data []byte, mode inventory.ImportMode, confirm bool) (inventory.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if mode != "" {
		mw.WriteField("mode", string(mode))
	}
	if confirm {
		mw.WriteField("confirm", "true")
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return inventory.ImportResult{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return inventory.ImportResult{}, err
	}
	if err := mw.Close(); err != nil {
		return inventory.ImportResult{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/inventory/import", mw.FormDataContentType(), &buf)
	if err != nil {
		return inventory.ImportResult{}, err
	}
	defer resp.Body.Close()

	var out inventory.ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode import result: %w", err)
	}
	return out, nil
}

// Export downloads the inventory in the given format.
func (c *Client) Export(ctx context.Context, format inventory.Format) ([]byte, error) {
	return c.download(ctx, "/api/inventory/export?fmt="+url.QueryEscape(string(format)))
}

// Sample downloads the one-row template file.
func (c *Client) Sample(ctx context.Context, format inventory.Format) ([]byte, error) {
	return c.download(ctx, "/api/inventory/sample?fmt="+url.QueryEscape(string(format)))
}

func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ==========================
// Transport
// ==========================

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends the request and turns non-2xx responses into *APIError. The caller
// closes the body on success.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(b, apiErr) != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return nil, apiErr
}

func recordPath(id string) string {
	return "/api/inventory/" + url.PathEscape(id)
}
