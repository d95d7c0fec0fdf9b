// Package translation talks to the external CAD translation service: OAuth
// client-credentials authentication, object storage buckets, the signed
// upload handshake, translation jobs and their manifests.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/logging"
	"github.com/dmitrijs2005/drawkeeper/internal/netx"
	"github.com/sethvargo/go-retry"
)

// API is the set of translation service calls used by the drawing service.
type API interface {
	Authenticator
	EnsureBucket(ctx context.Context, token, bucketKey string) error
	BeginUpload(ctx context.Context, token, bucketKey, objectKey string, parts int) (*UploadSession, error)
	Transfer(ctx context.Context, urls []string, data []byte) error
	FinalizeUpload(ctx context.Context, token, bucketKey, objectKey, uploadKey string) (string, error)
	SubmitJob(ctx context.Context, token, urn string, formats []OutputFormat) error
	Manifest(ctx context.Context, token, urn string) (*Manifest, error)
}

// UploadSession is the result of starting a signed upload.
type UploadSession struct {
	UploadKey string   `json:"uploadKey"`
	URLs      []string `json:"urls"`
}

// OutputFormat is one requested derivative of a translation job.
type OutputFormat struct {
	Type  string   `json:"type"`
	Views []string `json:"views,omitempty"`
}

// DefaultFormats requests an SVF2 derivative with 2D and 3D views.
func DefaultFormats() []OutputFormat {
	return []OutputFormat{{Type: "svf2", Views: []string{"2d", "3d"}}}
}

// Options configures Client.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scope        string

	// Timeout bounds every single HTTP exchange.
	Timeout time.Duration
	// Retries is how many times a transient failure (network error, 429,
	// 5xx) is retried. 0 disables retrying.
	Retries   uint64
	RetryBase time.Duration
	// UploadExpiry is how long signed upload URLs stay valid.
	UploadExpiry time.Duration
}

const defaultScope = "data:read data:write data:create bucket:create bucket:read"

// Client is an HTTP implementation of API.
type Client struct {
	opts Options
	http *http.Client
	log  logging.Logger
	now  func() time.Time
}

func NewClient(opts Options, log logging.Logger) *Client {
	if opts.Scope == "" {
		opts.Scope = defaultScope
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 200 * time.Millisecond
	}
	if opts.UploadExpiry <= 0 {
		opts.UploadExpiry = time.Hour
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
		log:  log.With("module", "translation"),
		now:  time.Now,
	}
}

type request struct {
	method      string
	path        string
	token       string
	body        []byte
	contentType string
	basicAuth   bool
}

// maxBackoff caps a single wait between retries.
const maxBackoff = 5 * time.Second

func (c *Client) backoff() retry.Backoff {
	return retry.WithMaxRetries(c.opts.Retries, retry.WithCappedDuration(maxBackoff, retry.NewExponential(c.opts.RetryBase)))
}

// do performs req with bounded exponential retry on transient failures and
// decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	b := c.backoff()
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, req, out)
		if err != nil && transient(ctx, err) {
			c.log.Debug(ctx, "transient failure", "method", req.method, "path", req.path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.method, c.opts.BaseURL+req.path, body)
	if err != nil {
		return err
	}
	if req.contentType != "" {
		hr.Header.Set("Content-Type", req.contentType)
	}
	hr.Header.Set("Accept", "application/json")
	switch {
	case req.basicAuth:
		hr.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)
	case req.token != "":
		hr.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return netx.NewStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// transient reports whether err is worth another attempt. Errors caused by
// the caller's own context are final.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *netx.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func jsonBody(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return b, nil
}

// Authenticate exchanges the client credentials for an access token.
func (c *Client) Authenticate(ctx context.Context) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", c.opts.Scope)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/authentication/v2/token",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		basicAuth:   true,
	}, &resp)
	if err != nil {
		return Token{}, fmt.Errorf("authenticate: %w", err)
	}
	if resp.AccessToken == "" {
		return Token{}, errors.New("authenticate: empty access token")
	}
	return Token{
		AccessToken: resp.AccessToken,
		ExpiresAt:   c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// EnsureBucket creates a transient bucket. An existing bucket yields
// ErrBucketExists.
func (c *Client) EnsureBucket(ctx context.Context, token, bucketKey string) error {
	body, err := jsonBody(map[string]string{"bucketKey": bucketKey, "policyKey": "transient"})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketKey, err)
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/oss/v2/buckets",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, nil)
	if netx.HasStatus(err, http.StatusConflict) {
		return ErrBucketExists
	}
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketKey, err)
	}
	return nil
}

func objectPath(bucketKey, objectKey string) string {
	return "/oss/v2/buckets/" + url.PathEscape(bucketKey) + "/objects/" + url.PathEscape(objectKey) + "/signeds3upload"
}

// BeginUpload requests parts signed upload URLs for an object.
func (c *Client) BeginUpload(ctx context.Context, token, bucketKey, objectKey string, parts int) (*UploadSession, error) {
	if parts < 1 {
		parts = 1
	}
	q := url.Values{}
	q.Set("minutesExpiration", strconv.Itoa(int(c.opts.UploadExpiry/time.Minute)))
	if parts > 1 {
		q.Set("parts", strconv.Itoa(parts))
	}

	var s UploadSession
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   objectPath(bucketKey, objectKey) + "?" + q.Encode(),
		token:  token,
	}, &s)
	if err != nil {
		return nil, fmt.Errorf("begin upload: %w", err)
	}
	if s.UploadKey == "" || len(s.URLs) == 0 {
		return nil, errors.New("begin upload: empty upload session")
	}
	return &s, nil
}

// PartSize is the size of every upload part but the last. Signed S3
// multipart uploads reject smaller non-final parts.
const PartSize = 5 << 20

// PartCount is the number of signed URLs needed to transfer size bytes.
func PartCount(size int) int {
	return max(1, (size+PartSize-1)/PartSize)
}

// Transfer cuts data into PartSize parts, the remainder last, and PUTs part
// i to urls[i]. Surplus urls are left unused.
func (c *Client) Transfer(ctx context.Context, urls []string, data []byte) error {
	parts := PartCount(len(data))
	if len(urls) < parts {
		return fmt.Errorf("transfer: %d bytes need %d upload urls, got %d", len(data), parts, len(urls))
	}

	for i := range parts {
		start := i * PartSize
		end := min(start+PartSize, len(data))
		part := data[start:end]
		u := urls[i]

		b := c.backoff()
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			err := netx.PutToSignedURL(ctx, c.http, u, part)
			if err != nil && transient(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("transfer part %d: %w", i+1, err)
		}
	}
	return nil
}

// FinalizeUpload completes a signed upload and returns the object id.
func (c *Client) FinalizeUpload(ctx context.Context, token, bucketKey, objectKey, uploadKey string) (string, error) {
	var resp struct {
		ObjectID  string `json:"objectId"`
		ObjectKey string `json:"objectKey"`
		BucketKey string `json:"bucketKey"`
		Size      int64  `json:"size"`
	}
	body, err := jsonBody(map[string]string{"uploadKey": uploadKey})
	if err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        objectPath(bucketKey, objectKey),
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	if resp.ObjectID == "" {
		return "", errors.New("finalize upload: empty object id")
	}
	return resp.ObjectID, nil
}

type jobPayload struct {
	Input struct {
		URN string `json:"urn"`
	} `json:"input"`
	Output struct {
		Formats []OutputFormat `json:"formats"`
	} `json:"output"`
}

// SubmitJob starts a translation of urn into formats.
func (c *Client) SubmitJob(ctx context.Context, token, urn string, formats []OutputFormat) error {
	if len(formats) == 0 {
		formats = DefaultFormats()
	}
	var p jobPayload
	p.Input.URN = urn
	p.Output.Formats = formats

	body, err := jsonBody(p)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}

	var resp struct {
		Result string `json:"result"`
		URN    string `json:"urn"`
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/modelderivative/v2/designdata/job",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &resp)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	return nil
}

// Manifest fetches the job manifest. A 404 yields ErrManifestNotFound.
func (c *Client) Manifest(ctx context.Context, token, urn string) (*Manifest, error) {
	var m Manifest
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/modelderivative/v2/designdata/" + url.PathEscape(urn) + "/manifest",
		token:  token,
	}, &m)
	if netx.HasStatus(err, http.StatusNotFound) {
		return nil, ErrManifestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}
