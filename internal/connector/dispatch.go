package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var dispatchHTTPClient = &http.Client{Timeout: 30 * time.Second}

// baseBackoff is the first retry delay; doubled per attempt.
var baseBackoff = time.Second

// DispatchResult holds the outcome of a single delivery attempt.
type DispatchResult struct {
	StatusCode   int
	ResponseBody string
	Attempts     int
	Error        string
}

// Dispatch POSTs the payload to the connector's endpoint, retrying
// transient failures with exponential backoff. 4xx responses are not
// retried; the endpoint rejected the payload and will again.
func Dispatch(ctx context.Context, c *Connector, payload []byte, maxAttempts int) *DispatchResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	headers := ResolveHeaders(c.Headers)

	result := &DispatchResult{}
	backoff := baseBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		code, body, err := post(ctx, c.Endpoint, headers, payload)
		if err == nil && code < 400 {
			result.StatusCode = code
			result.ResponseBody = body
			result.Error = ""
			return result
		}

		if err != nil {
			result.Error = err.Error()
		} else {
			result.StatusCode = code
			result.ResponseBody = body
			result.Error = fmt.Sprintf("endpoint returned %d", code)
			if code < 500 {
				return result
			}
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			result.Error = ctx.Err().Error()
			return result
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return result
}

func post(ctx context.Context, url string, headers map[string]string, payload []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := dispatchHTTPClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(body), nil
}

// ResolveHeaders replaces {{env.VAR_NAME}} in header values with
// environment values so credentials stay out of the database.
func ResolveHeaders(headers map[string]string) map[string]string {
	resolved := make(map[string]string, len(headers))
	for k, v := range headers {
		resolved[k] = resolveEnvVars(v)
	}
	return resolved
}

func resolveEnvVars(s string) string {
	for {
		start := strings.Index(s, "{{env.")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			return s
		}
		end += start
		varName := s[start+6 : end]
		s = s[:start] + os.Getenv(varName) + s[end+2:]
	}
}
