package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
	"github.com/dmitrijs2005/drawkeeper/internal/common"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is not nil.
func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Code = env.Error.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	return apiErr
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// Upload streams the file at path to the server and returns the new
// drawing id.
func (c *HTTPClient) Upload(ctx context.Context, path string, opts UploadOptions) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, filepath.Base(path), f, opts))
	}()
	defer pr.Close()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		DrawingID string `json:"drawingId"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.DrawingID == "" {
		return "", errors.New("upload response without drawing id")
	}
	return out.DrawingID, nil
}

func writeUploadForm(mw *multipart.Writer, fileName string, r io.Reader, opts UploadOptions) error {
	fields := [][2]string{{"name", opts.Name}, {"description", opts.Description}, {"project_id", opts.ProjectID}}
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return err
	}
	return mw.Close()
}

// Status reconciles a drawing by its translation urn.
func (c *HTTPClient) Status(ctx context.Context, urn string) (*models.Status, error) {
	var st models.Status
	if err := c.getJSON(ctx, "/status/"+url.PathEscape(urn), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Check reconciles one of the caller's drawings.
func (c *HTTPClient) Check(ctx context.Context, drawingID string) (*models.Status, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/drawings/"+url.PathEscape(drawingID)+"/check", nil)
	if err != nil {
		return nil, err
	}
	var st models.Status
	if err := c.do(req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) Get(ctx context.Context, drawingID string) (*models.Drawing, error) {
	var d models.Drawing
	if err := c.getJSON(ctx, "/drawings/"+url.PathEscape(drawingID), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) List(ctx context.Context, state string, limit int) ([]models.Drawing, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/drawings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Drawings []models.Drawing `json:"drawings"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Drawings, nil
}

func (c *HTTPClient) Delete(ctx context.Context, drawingID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/drawings/"+url.PathEscape(drawingID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *HTTPClient) DownloadURL(ctx context.Context, drawingID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/drawings/"+url.PathEscape(drawingID)+"/download", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Ping probes the unauthenticated health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	req.Header.Del(common.AuthorizationHeaderName)
	return c.do(req, nil)
}
