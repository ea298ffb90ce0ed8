package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stillwater-labs/stillwater/internal/config"
	"github.com/stillwater-labs/stillwater/internal/repository"
	"github.com/stillwater-labs/stillwater/internal/service"
)

// Processor consumes background tasks and drives the periodic sweep.
type Processor struct {
	achievements service.AchievementService
	sessionRepo  repository.SessionRepository
	server       *asynq.Server
	client       *Client
	cfg          config.WorkerConfig
	logger       *slog.Logger
}

// NewProcessor creates the background task processor.
func NewProcessor(
	achievements service.AchievementService,
	sessionRepo repository.SessionRepository,
	redisCfg config.RedisConfig,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Processor {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueAchievements: 6,
				QueueMaintenance:  1,
			},
		},
	)

	return &Processor{
		achievements: achievements,
		sessionRepo:  sessionRepo,
		server:       server,
		client:       NewClient(redisCfg.Addr(), redisCfg.Password, redisCfg.DB),
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers handlers and runs the server plus the periodic sweep.
func (p *Processor) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProcessAchievements, p.handleProcessAchievements)
	mux.HandleFunc(TaskExpireAbandoned, p.handleExpireAbandoned)

	go func() {
		if err := p.server.Run(mux); err != nil {
			p.logger.Error("worker server stopped", "error", err)
		}
	}()

	go p.runSweep(ctx)

	p.logger.Info("worker started", "concurrency", p.cfg.Concurrency)
	return nil
}

// Stop shuts the worker down, waiting for in-flight tasks.
func (p *Processor) Stop() {
	p.server.Shutdown()
	_ = p.client.Close()
}

func (p *Processor) handleProcessAchievements(ctx context.Context, task *asynq.Task) error {
	var payload ProcessAchievementsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.achievements.ProcessSession(ctx, payload.SessionID); err != nil {
		p.logger.Error("achievement processing failed", "session_id", payload.SessionID, "error", err)
		return err
	}
	return nil
}

func (p *Processor) handleExpireAbandoned(ctx context.Context, task *asynq.Task) error {
	cutoff := time.Now().Add(-p.cfg.AbandonedCutoff)
	n, err := p.sessionRepo.MarkAbandonedBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("abandoned sweep failed", "error", err)
		return err
	}
	if n > 0 {
		p.logger.Info("abandoned stale sessions", "count", n)
	}
	return nil
}

// runSweep enqueues the expiry task on a fixed interval until ctx ends.
func (p *Processor) runSweep(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := asynq.NewTask(TaskExpireAbandoned, nil, asynq.MaxRetry(1))
			if _, err := p.client.client.EnqueueContext(ctx, task, asynq.Queue(QueueMaintenance)); err != nil {
				p.logger.Error("failed to enqueue sweep", "error", err)
			}
		}
	}
}
