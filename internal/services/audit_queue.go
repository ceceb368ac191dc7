package services

import (
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
)

const TaskTypeAuditRecord = "audit:record"

// AuditQueue decouples audit producers from the append sink.
type AuditQueue interface {
	// Enqueue hands off one entry for persistence.
	Enqueue(entry *models.AuditLog) error
	// IsAsync returns true if entries are processed out of process.
	IsAsync() bool
	// Close gracefully shuts down the queue.
	Close() error
}

var (
	globalAuditQueue AuditQueue
	auditQueueOnce   sync.Once
)

// InitAuditQueue initializes the global audit queue. With Redis enabled the
// entries flow through asynq; otherwise they are written in-process.
func InitAuditQueue(cfg *config.Config) AuditQueue {
	auditQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncAuditQueue(&cfg.Redis)
			if err != nil {
				logger.Infof("[AuditQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalAuditQueue = NewSyncAuditQueue()
			} else {
				logger.Infof("[AuditQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalAuditQueue = queue
			}
		} else {
			logger.Infof("[AuditQueue] Sync queue initialized (Redis disabled)")
			globalAuditQueue = NewSyncAuditQueue()
		}
	})
	return globalAuditQueue
}

// GetAuditQueue returns the global audit queue, or nil before InitAuditQueue.
func GetAuditQueue() AuditQueue {
	return globalAuditQueue
}

// AsyncAuditQueue implements AuditQueue using asynq (Redis-based).
type AsyncAuditQueue struct {
	client *asynq.Client
}

func NewAsyncAuditQueue(cfg *config.RedisConfig) (*AsyncAuditQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode.
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncAuditQueue{client: client}, nil
}

func (q *AsyncAuditQueue) Enqueue(entry *models.AuditLog) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeAuditRecord, payload)
	_, err = q.client.Enqueue(t,
		asynq.Queue("audit"),
		asynq.MaxRetry(3),
	)
	return err
}

func (q *AsyncAuditQueue) IsAsync() bool { return true }

func (q *AsyncAuditQueue) Close() error { return q.client.Close() }

// SyncAuditQueue writes entries in-process. The write happens on a separate
// goroutine so the caller's success path never waits on the sink.
type SyncAuditQueue struct {
	processor func(*models.AuditLog) error
}

func NewSyncAuditQueue() *SyncAuditQueue {
	return &SyncAuditQueue{}
}

func (q *SyncAuditQueue) SetProcessor(processor func(*models.AuditLog) error) {
	q.processor = processor
}

func (q *SyncAuditQueue) Enqueue(entry *models.AuditLog) error {
	if q.processor == nil {
		logger.Warn().Msg("[AuditQueue] no processor set, entry dropped")
		return nil
	}

	go func() {
		if err := q.processor(entry); err != nil {
			logger.Warn().Err(err).Msg("[AuditQueue] write failed")
		}
	}()

	return nil
}

func (q *SyncAuditQueue) IsAsync() bool { return false }

func (q *SyncAuditQueue) Close() error { return nil }
