package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
)

// ReceiverConfig configures the queue receiver
type ReceiverConfig struct {
	BufferSize   int
	ErrorBackoff time.Duration
}

// Receiver handles receiving messages from a queue
type Receiver struct {
	consumer queue.QueueConsumer
	config   ReceiverConfig
	log      *zap.Logger
}

// NewReceiver creates a new queue receiver
func NewReceiver(consumer queue.QueueConsumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = time.Second
	}
	return &Receiver{
		consumer: consumer,
		config:   config,
		log:      log,
	}
}

// Start begins receiving messages and sends them to the output channel
func (r *Receiver) Start(ctx context.Context, out chan<- queue.Message) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Receiver shutting down")
			return
		default:
			messages, err := r.consumer.ReceiveMessages(ctx)
			if err != nil {
				r.log.Error("Error receiving messages",
					zap.String("queue", r.consumer.Name()),
					zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(r.config.ErrorBackoff):
				}
				continue
			}

			if len(messages) == 0 {
				continue
			}

			r.log.Debug("Received messages", zap.Int("message_count", len(messages)))

			for _, msg := range messages {
				select {
				case <-ctx.Done():
					r.log.Info("Receiver shutting down while sending messages")
					return
				case out <- msg:
				}
			}
		}
	}
}
