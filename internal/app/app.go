package app

import (
	"context"
	"sync"

	"github.com/nssports/sportsbook-engine/internal/placement"
	"github.com/nssports/sportsbook-engine/internal/queue"
	"github.com/nssports/sportsbook-engine/internal/settlement"
	"github.com/nssports/sportsbook-engine/internal/storage"
	"github.com/nssports/sportsbook-engine/pkg/config"
	"github.com/nssports/sportsbook-engine/pkg/healthprobe"
	"github.com/nssports/sportsbook-engine/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         storage.Store
	source        queue.EventSource
	orchestrator  *settlement.Orchestrator
	placement     *placement.Service
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
