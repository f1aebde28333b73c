package queue

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/marketing-genius/internal/model"
)

func newTestQueue() *InMemoryQueue {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond
	return q
}

func TestPublishWithoutSubscribers(t *testing.T) {
	q := newTestQueue()
	assert.Error(t, q.Publish("nobody", 1))
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := newTestQueue()

	var calls atomic.Int32
	done := make(chan struct{})
	require.NoError(t, q.Subscribe("jobs", func(payload any) error {
		if calls.Add(1) < 3 {
			return errors.New("flaky")
		}
		close(done)
		return nil
	}))

	require.NoError(t, q.Publish("jobs", 42))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := newTestQueue()
	q.MaxRetries = 2

	var wg sync.WaitGroup
	wg.Add(3) // first attempt + 2 retries
	var calls atomic.Int32
	require.NoError(t, q.Subscribe("jobs", func(payload any) error {
		calls.Add(1)
		wg.Done()
		return errors.New("always fails")
	}))
	require.NoError(t, q.Publish("jobs", "x"))

	wg.Wait()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmailSendSubscriber(t *testing.T) {
	q := newTestQueue()
	sent := make(chan model.EmailJob, 2)
	require.NoError(t, StartEmailSendSubscriber(q, func(job model.EmailJob) error {
		sent <- job
		return nil
	}, zap.NewNop()))

	job := model.EmailJob{ID: "job-1", To: "alice@example.com", Subject: "Hi"}
	require.NoError(t, q.Publish(EmailSendsTopic, job))

	raw, err := json.Marshal(model.EmailJob{ID: "job-2", To: "bob@example.com"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(EmailSendsTopic, raw))

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		select {
		case j := <-sent:
			got[j.ID] = j.To
		case <-time.After(2 * time.Second):
			t.Fatal("email job not delivered")
		}
	}
	assert.Equal(t, map[string]string{"job-1": "alice@example.com", "job-2": "bob@example.com"}, got)
}

func TestDecodeEmailJob(t *testing.T) {
	_, err := decodeEmailJob(12)
	assert.Error(t, err)

	_, err = decodeEmailJob([]byte("{"))
	assert.Error(t, err)

	job, err := decodeEmailJob(&model.EmailJob{ID: "p"})
	require.NoError(t, err)
	assert.Equal(t, "p", job.ID)
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryHeader: int64(3)}))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "bogus"}))
}
