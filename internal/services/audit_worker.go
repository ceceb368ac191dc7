package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
)

// AuditWorker drains the Redis-backed audit queue into the database.
type AuditWorker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(*models.AuditLog) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

func NewAuditWorker(cfg *config.RedisConfig) *AuditWorker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"audit": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn().Err(err).Str("type", task.Type()).Msg("[AuditWorker] task failed")
			}),
		},
	)

	return &AuditWorker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function that persists one entry.
func (w *AuditWorker) SetProcessor(processor func(*models.AuditLog) error) {
	w.processor = processor
}

// Start begins consuming audit entries.
func (w *AuditWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeAuditRecord, w.handleAuditRecord)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[AuditWorker] Starting async audit worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[AuditWorker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker.
func (w *AuditWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[AuditWorker] Shutdown complete")
}

func (w *AuditWorker) handleAuditRecord(ctx context.Context, t *asynq.Task) error {
	var entry models.AuditLog
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		logger.Warn().Err(err).Msg("[AuditWorker] malformed payload dropped")
		return nil
	}

	if w.processor == nil {
		return nil
	}
	return w.processor(&entry)
}
