package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxRetries bounds retryWithBackoff for the raw HTTP providers.
const maxRetries = 3

// postJSON marshals payload, POSTs it to url and decodes a 200 response into
// out. Rate limits and 5xx responses are retried with backoff; 401 and 403
// become authError.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	return retryWithBackoff(ctx, maxRetries, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		httpResp, err := client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch code := httpResp.StatusCode; {
		case code == http.StatusTooManyRequests:
			return &rateLimitError{retryable: true}
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &authError{message: string(respBody)}
		case code >= 500:
			return &serverError{statusCode: code, body: string(respBody)}
		case code != http.StatusOK:
			return fmt.Errorf("API error (status %d): %s", code, string(respBody))
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		return nil
	})
}
