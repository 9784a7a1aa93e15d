package consumer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/config"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository"
)

const pipelineBufferSize = 100

// Consumer orchestrates a pipeline of stages that land queued registrations in the repository
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	batchWriter *BatchWriter
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, repo repository.RegistrationRepository, log *zap.Logger) *Consumer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		BufferSize: pipelineBufferSize,
	}, log)

	parser := NewParserStage(queueConsumer, NewJSONRegistrationParser(), log)

	batchWriter := NewBatchWriter(repo, BatchWriterConfig{
		MaxBatchSize: cfg.Consumer.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
	}, log)

	return &Consumer{
		receiver:    receiver,
		parser:      parser,
		batchWriter: batchWriter,
	}
}

// Start runs the pipeline until ctx is done and every stage has drained
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan queue.Message, c.receiver.config.BufferSize)
	envelopeChan := make(chan *Envelope, c.receiver.config.BufferSize)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, envelopeChan)
	}()

	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
