// Package client is a QIDO-RS HTTP client.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

const acceptDICOMJSON = "application/dicom+json"

// Config holds client configuration
type Config struct {
	Timeout    time.Duration // Timeout for a whole request (default: 60s)
	HTTPClient *http.Client  // Overrides the transport; Timeout is ignored when set
	Logger     *zap.Logger   // Logger for the client (default: no-op)
}

// Client sends searches to one QIDO-RS endpoint.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// SearchResponse is the decoded result of a search.
type SearchResponse struct {
	Datasets  []*dicom.Dataset
	Warnings  []string // raw Warning header values
	RequestID string
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qido: server returned %d: %s", e.StatusCode, e.Message)
}

// Is maps 400 to errors.ErrBadRequest and 404 to errors.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == errors.ErrBadRequest
	case http.StatusNotFound:
		return target == errors.ErrNotFound
	}
	return false
}

// New builds a client for the service rooted at baseURL,
// e.g. "http://localhost:8080" or "https://pacs.example/dicomweb".
func New(baseURL string, config Config) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse base URL %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("qido: unsupported URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{baseURL: u, http: httpClient, logger: logger}, nil
}

// SearchStudies searches all studies.
func (c *Client) SearchStudies(ctx context.Context, params query.Parameters) (*SearchResponse, error) {
	return c.Search(ctx, types.AllStudies, "", "", params)
}

// SearchSeries searches all series, or the series of one study when
// studyUID is set.
func (c *Client) SearchSeries(ctx context.Context, studyUID string, params query.Parameters) (*SearchResponse, error) {
	resource := types.AllSeries
	if studyUID != "" {
		resource = types.StudySeries
	}
	return c.Search(ctx, resource, studyUID, "", params)
}

// SearchInstances searches all instances, or the instances of one study or
// series.
func (c *Client) SearchInstances(ctx context.Context, studyUID, seriesUID string, params query.Parameters) (*SearchResponse, error) {
	resource := types.AllInstances
	switch {
	case studyUID != "" && seriesUID != "":
		resource = types.StudySeriesInstances
	case studyUID != "":
		resource = types.StudyInstances
	case seriesUID != "":
		return nil, errors.New("qido: a series scope requires a study")
	}
	return c.Search(ctx, resource, studyUID, seriesUID, params)
}

// Search sends one search. A 204 response yields an empty, non-nil
// Datasets slice.
func (c *Client) Search(ctx context.Context, resource types.ResourceType, studyUID, seriesUID string, params query.Parameters) (*SearchResponse, error) {
	path, err := resourcePath(resource, studyUID, seriesUID)
	if err != nil {
		return nil, err
	}

	u := *c.baseURL
	u.Path += path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", acceptDICOMJSON)

	c.logger.Debug("Sending QIDO-RS search", zap.String("url", u.String()))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send search")
	}
	defer resp.Body.Close()

	out := &SearchResponse{
		Datasets:  []*dicom.Dataset{},
		Warnings:  resp.Header.Values("Warning"),
		RequestID: resp.Header.Get("X-Request-Id"),
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return out, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(&out.Datasets); err != nil {
			return nil, errors.Wrap(err, "decode search response")
		}
		c.logger.Debug("QIDO-RS search completed",
			zap.Int("matches", len(out.Datasets)),
			zap.String("request_id", out.RequestID))
		return out, nil
	default:
		return nil, statusError(resp)
	}
}

func resourcePath(resource types.ResourceType, studyUID, seriesUID string) (string, error) {
	if resource.IsStudyScoped() && studyUID == "" {
		return "", errors.Newf("qido: %s search requires a study", resource)
	}
	if resource.IsSeriesScoped() && seriesUID == "" {
		return "", errors.Newf("qido: %s search requires a series", resource)
	}

	study := url.PathEscape(studyUID)
	switch resource {
	case types.AllStudies:
		return "/studies", nil
	case types.AllSeries:
		return "/series", nil
	case types.AllInstances:
		return "/instances", nil
	case types.StudySeries:
		return "/studies/" + study + "/series", nil
	case types.StudyInstances:
		return "/studies/" + study + "/instances", nil
	case types.StudySeriesInstances:
		return "/studies/" + study + "/series/" + url.PathEscape(seriesUID) + "/instances", nil
	}
	return "", errors.Newf("qido: unknown resource %d", int(resource))
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(body))

	var decoded struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
		message = decoded.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: message}
}
