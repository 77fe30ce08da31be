// Package earthengine talks to the remote compositing backend. The backend is
// an opaque collaborator: this package marshals declarative composite and
// video specs into REST requests and downloads the rendered media. All
// server-side evaluation (collection filtering, reduction, visualization)
// happens remotely.
package earthengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"timelapse-desktop/internal/ratelimit"
)

const (
	// BaseURL is the backend REST endpoint
	BaseURL = "https://earthengine.googleapis.com/v1"

	// Provider is the identifier used for rate-limit state
	Provider = "earthengine"

	// User agent
	UserAgent = "TimelapseDesktop/1.0"
)

// RequestError is returned for non-200 backend responses
type RequestError struct {
	StatusCode int
	Operation  string
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed with status %d", e.Operation, e.StatusCode)
}

// Session is an initialized connection to the compositing backend. Each
// session carries its own credentials and HTTP client, so independent
// sessions (different projects, tests with doubles) can coexist in one
// process. Everything that talks to the backend takes a *Session.
type Session struct {
	id          string
	project     string
	accessToken string
	baseURL     string
	httpClient  *http.Client
	rateLimits  *ratelimit.Handler

	mu          sync.RWMutex
	initialized bool
}

// NewSession creates a session for a cloud project with system proxy support.
// The session is not usable until Initialize succeeds.
func NewSession(project, accessToken string) *Session {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Session{
		id:          uuid.NewString(),
		project:     project,
		accessToken: accessToken,
		baseURL:     BaseURL,
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
	}
}

// ID returns the unique session identifier
func (s *Session) ID() string {
	return s.id
}

// Project returns the cloud project the session is bound to
func (s *Session) Project() string {
	return s.project
}

// SetBaseURL overrides the backend endpoint. Used by tests to point the
// session at a local double.
func (s *Session) SetBaseURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = url
}

// SetRateLimitHandler wires quota handling into every backend request
func (s *Session) SetRateLimitHandler(h *ratelimit.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimits = h
}

// Initialized reports whether Initialize has succeeded
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Initialize verifies the project and credentials against the backend.
// Safe to call more than once; subsequent calls are no-ops.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if s.project == "" {
		return fmt.Errorf("session has no project ID")
	}

	url := fmt.Sprintf("%s/projects/%s/algorithms?pageSize=1", s.baseURL, s.project)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &RequestError{
			StatusCode: resp.StatusCode,
			Operation:  "session initialization",
			Message:    string(body),
		}
	}

	s.initialized = true
	return nil
}

func (s *Session) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}
}

// do sends a request with session headers and routes the response through the
// rate-limit handler. Callers own the response body.
func (s *Session) do(req *http.Request, operation string) (*http.Response, error) {
	s.mu.RLock()
	limits := s.rateLimits
	s.mu.RUnlock()

	if limits != nil && limits.IsRateLimited(Provider) {
		return nil, fmt.Errorf("%s deferred: backend is rate limited", operation)
	}

	s.setHeaders(req)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}

	if limits != nil && limits.CheckResponse(Provider, resp) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Operation:  operation,
			Message:    string(body),
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Operation:  operation,
			Message:    string(body),
		}
	}

	return resp, nil
}
