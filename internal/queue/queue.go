package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/model"
)

const EmailSendsTopic = "email_sends"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to in-process subscribers with retry
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	logger   *zap.Logger

	MaxRetries int
	Backoff    time.Duration
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		logger:     logger,
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish hands payload to every subscriber of topic without waiting
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, JobPayload{Payload: payload, MaxRetries: q.MaxRetries})
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			q.logger.Debug("job processed", zap.String("topic", topic))
			return
		}

		job.RetryCount++
		q.logger.Warn("job failed",
			zap.String("topic", topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		if job.RetryCount > job.MaxRetries {
			q.logger.Error("job permanently failed", zap.String("topic", topic), zap.Int("attempts", job.RetryCount))
			return
		}

		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartEmailSendSubscriber delivers queued email jobs through send. Payloads
// arrive as model.EmailJob in process or as JSON bytes from a broker.
func StartEmailSendSubscriber(q Queue, send func(model.EmailJob) error, logger *zap.Logger) error {
	return q.Subscribe(EmailSendsTopic, func(payload any) error {
		job, err := decodeEmailJob(payload)
		if err != nil {
			logger.Warn("dropping invalid email job", zap.Error(err))
			return nil // no retry
		}

		logger.Info("sending queued email", zap.String("job_id", job.ID), zap.String("subject", job.Subject))
		if err := send(job); err != nil {
			return fmt.Errorf("send email %s: %w", job.ID, err)
		}
		return nil
	})
}

func decodeEmailJob(payload any) (model.EmailJob, error) {
	switch p := payload.(type) {
	case model.EmailJob:
		return p, nil
	case *model.EmailJob:
		return *p, nil
	case []byte:
		var job model.EmailJob
		if err := json.Unmarshal(p, &job); err != nil {
			return model.EmailJob{}, err
		}
		return job, nil
	default:
		return model.EmailJob{}, fmt.Errorf("unexpected payload type %T", payload)
	}
}

var _ Queue = (*InMemoryQueue)(nil)
