package results

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nssports/sportsbook-engine/pkg/types"
)

// HTTPProvider fetches game results from the results feed API.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider against the given feed base URL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GameResult fetches the result snapshot for a game. A 404 maps to
// ErrNotFound; other non-200 statuses are returned as errors.
func (p *HTTPProvider) GameResult(ctx context.Context, gameID string) (*types.GameResult, error) {
	url := fmt.Sprintf("%s/api/v1/games/%s/result", p.baseURL, gameID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		FetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		FetchesTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		FetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("results API: status %d for game %s", resp.StatusCode, gameID)
	}

	var res types.GameResult
	err = json.NewDecoder(resp.Body).Decode(&res)
	if err != nil {
		FetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode result for game %s: %w", gameID, err)
	}
	if res.GameID == "" {
		res.GameID = gameID
	}

	FetchesTotal.WithLabelValues("ok").Inc()
	return &res, nil
}
