package worker

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkSkews1/ai-vid-gen/pipeline"
	"github.com/MarkSkews1/ai-vid-gen/tasks"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB       *gorm.DB
	RDB      *redis.Client
	Collab   pipeline.Collaborators
	Logger   *zap.Logger
	handlers map[string]TaskHandler
}

// NewProcessor creates a new worker processor.
func NewProcessor(db *gorm.DB, rdb *redis.Client, collab pipeline.Collaborators, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		DB:       db,
		RDB:      rdb,
		Collab:   collab,
		Logger:   logger,
		handlers: make(map[string]TaskHandler),
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	p.Logger.Info("registered queue handler", zap.String("queue", queueName))
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.RDB.LPush(ctx, queueName, payloadStr).Err()
}

// Listen starts the worker, listening on all registered queues until ctx is
// cancelled.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) {
	p.Logger.Info("worker listening", zap.Strings("queues", queueNames))

	for {
		// BRPop blocks until a task is available on any of the listed queues.
		result, err := p.RDB.BRPop(ctx, 0, queueNames...).Result()
		if err != nil {
			if ctx.Err() != nil {
				p.Logger.Info("worker shutting down")
				return
			}
			p.Logger.Error("failed to pop from queue", zap.Error(err))
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		queueName := result[0]
		payload := result[1]

		handler, ok := p.handlers[queueName]
		if !ok {
			p.Logger.Error("no handler registered for queue", zap.String("queue", queueName))
			continue
		}

		p.Logger.Info("received task", zap.String("queue", queueName))

		if err := handler(ctx, payload); err != nil {
			p.Logger.Error("task failed",
				zap.String("queue", queueName),
				zap.Error(err))
		}
	}
}
