package providers

import (
	"context"
	"fmt"
)

const repairPrompt = "Your previous response was not valid JSON. The error was: %v\n\n" +
	"Please fix it and respond with ONLY the corrected JSON object.\n\n" +
	"Your previous response was:\n%s"

// GenerateJSON calls c and decodes the reply into T. A reply that cannot be
// decoded gets one repair round trip. On final failure the last Response is
// still returned so callers can salvage its text.
func GenerateJSON[T any](ctx context.Context, c Client, req Request) (T, Response, error) {
	var zero T
	resp, err := c.Generate(ctx, req)
	if err != nil {
		return zero, resp, err
	}
	v, parseErr := ParseJSON[T](resp.Content)
	if parseErr == nil {
		return v, resp, nil
	}

	repair := req
	repair.UserPrompt = fmt.Sprintf(repairPrompt, parseErr, resp.Content)
	resp2, err := c.Generate(ctx, repair)
	if err != nil {
		return zero, resp, fmt.Errorf("repair pass failed: %w (original error: %w)", err, parseErr)
	}
	resp2.TokensUsed += resp.TokensUsed

	v, err = ParseJSON[T](resp2.Content)
	if err != nil {
		return zero, resp2, fmt.Errorf("response invalid after repair: %w", err)
	}
	return v, resp2, nil
}
