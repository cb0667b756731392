package results

import (
	"context"
	"errors"

	"github.com/nssports/sportsbook-engine/pkg/types"
)

// ErrNotFound indicates the feed has no result for the game yet. The
// settlement orchestrator treats this as retryable.
var ErrNotFound = errors.New("game result not found")

// Provider resolves final game results for grading.
type Provider interface {
	GameResult(ctx context.Context, gameID string) (*types.GameResult, error)
}

// StaticProvider serves results from a fixed map. Used by the one-shot
// settle command and in tests.
type StaticProvider struct {
	results map[string]*types.GameResult
}

// NewStaticProvider creates a StaticProvider over the given results.
func NewStaticProvider(results map[string]*types.GameResult) *StaticProvider {
	if results == nil {
		results = make(map[string]*types.GameResult)
	}
	return &StaticProvider{results: results}
}

// Put adds or replaces a result.
func (p *StaticProvider) Put(res *types.GameResult) {
	p.results[res.GameID] = res
}

// GameResult returns the stored result or ErrNotFound.
func (p *StaticProvider) GameResult(_ context.Context, gameID string) (*types.GameResult, error) {
	res, ok := p.results[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}
