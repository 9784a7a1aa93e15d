package consumer

import (
	"context"

	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
)

// ParserStage handles parsing queue messages into registration envelopes
type ParserStage struct {
	consumer queue.QueueConsumer
	parser   MessageParser
	log      *zap.Logger
}

// NewParserStage creates a new parser stage
func NewParserStage(consumer queue.QueueConsumer, parser MessageParser, log *zap.Logger) *ParserStage {
	return &ParserStage{
		consumer: consumer,
		parser:   parser,
		log:      log,
	}
}

// Start begins parsing messages and outputs envelopes
func (p *ParserStage) Start(ctx context.Context, in <-chan queue.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case msg, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			envelope := p.parseMessage(ctx, msg)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
			}
		}
	}
}

// parseMessage parses a single message into an envelope; malformed messages are dropped from the queue
func (p *ParserStage) parseMessage(ctx context.Context, msg queue.Message) *Envelope {
	registration, err := p.parser.Parse(msg.Body)
	if err != nil {
		p.log.Warn("Failed to parse message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		if err := p.consumer.DeleteMessage(ctx, msg); err != nil {
			p.log.Error("Failed to delete malformed message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return nil
		}
		p.log.Info("Deleted malformed message",
			zap.String("queue", p.consumer.Name()),
			zap.String("message_id", msg.ID))
		return nil
	}

	ack := func(ctx context.Context) error {
		return p.consumer.DeleteMessage(ctx, msg)
	}

	// Unacknowledged messages are redelivered by the broker
	nack := func(ctx context.Context) error {
		return nil
	}

	return NewEnvelope(registration, ack, nack)
}
