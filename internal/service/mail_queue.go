package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendMail = "mail:send"
	mailQueue    = "mail"
)

func NewMailTask(m Message) (*asynq.Task, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mail task, %w", err)
	}

	return asynq.NewTask(TypeSendMail, payload, asynq.MaxRetry(5), asynq.Queue(mailQueue)), nil
}

// QueueMailer hands mail to a Redis backed queue so delivery survives
// restarts and gets retried
type QueueMailer struct {
	Client *asynq.Client
}

func (q *QueueMailer) Send(m Message) error {
	t, err := NewMailTask(m)
	if err != nil {
		return err
	}

	if _, err := q.Client.Enqueue(t); err != nil {
		return fmt.Errorf("failed to enqueue mail, %w", err)
	}

	return nil
}

// HandleMailTask delivers queued mail through m
func HandleMailTask(m Mailer) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var msg Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			return fmt.Errorf("failed to decode mail task, %w, %w", err, asynq.SkipRetry)
		}

		return m.Send(msg)
	}
}

// StartMailWorker consumes the mail queue in the background
func StartMailWorker(opt asynq.RedisConnOpt, m Mailer) (*asynq.Server, error) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{mailQueue: 1},
		Logger:      zap.S(),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeSendMail, HandleMailTask(m))

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start mail worker, %w", err)
	}

	return srv, nil
}
