package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gatasproject/gatas-server/pkg/model"
)

// fetchReadsb performs one GET against a readsb-style API and converts
// the response. Extra headers carry provider API keys.
func fetchReadsb(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]model.AircraftPosition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch aircraft data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, newRateLimitError(resp)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp readsbResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse API response: %w", err)
	}
	return convertReadsbResponse(apiResp), nil
}
