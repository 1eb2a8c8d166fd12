// Package detector calls an external object detection service over HTTP.
package detector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
)

// Client posts images to a detection endpoint. The endpoint receives a
// multipart form with an "image" file and answers with
// {"detections": [...]} in the loosely typed detection schema.
type Client struct {
	url        string
	httpClient *http.Client
}

// New returns a client for url. A zero timeout means no timeout.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewWithHTTPClient returns a client that sends requests through hc.
func NewWithHTTPClient(url string, hc *http.Client) *Client {
	return &Client{url: url, httpClient: hc}
}

// Detect sends image to the service and returns the detections it reports.
// Records the service returns in an unusable shape are logged and skipped.
func (c *Client) Detect(ctx context.Context, image []byte, filename string) ([]annotations.RawDetection, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(payload))
	}

	detections, diags, err := annotations.ParseDetections(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	for _, d := range diags {
		slog.Warn("Skipping detection from detector", "filename", filename, "reason", d)
	}

	slog.Debug("Detector responded", "filename", filename, "detections", len(detections))
	return detections, nil
}
