package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/config"
	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
)

func testConsumerConfig() *config.Config {
	return &config.Config{
		Consumer: config.Consumer{
			BatchSizeMax:    10,
			BatchTimeoutSec: 1,
		},
	}
}

func TestConsumer_Start_PipelineCoordination(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockRegistrationRepository)
	log := zap.NewNop()

	message := newTestMessage("msg-1", `{"registrant_id": "r-1", "event_id": "e-1"}`)

	mockConsumer.On("ReceiveMessages", mock.Anything).Return([]queue.Message{message}, nil).Once()
	mockConsumer.On("ReceiveMessages", mock.Anything).Return([]queue.Message{}, nil).Maybe()
	mockConsumer.On("DeleteMessage", mock.Anything, message).Return(nil).Once()

	mockRepo.On("InsertBatch", mock.Anything, mock.MatchedBy(func(registrations []*domain.IngestedRegistration) bool {
		return len(registrations) == 1 &&
			registrations[0].Record.String(domain.FieldRegistrantID) == "r-1" &&
			registrations[0].Payload == string(message.Body)
	})).Return(1, nil)

	consumer := NewConsumer(testConsumerConfig(), mockConsumer, mockRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The pending batch is flushed and acknowledged on shutdown
	err := consumer.Start(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockConsumer.AssertCalled(t, "DeleteMessage", mock.Anything, message)
}

func TestConsumer_Start_GracefulShutdown(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockRepo := new(MockRegistrationRepository)

	mockConsumer.On("ReceiveMessages", mock.Anything).Return([]queue.Message{}, nil).Maybe()

	consumer := NewConsumer(testConsumerConfig(), mockConsumer, mockRepo, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		assert.NoError(t, consumer.Start(ctx))
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Graceful shutdown took too long")
	}

	mockRepo.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestConsumer_NewConsumer_ComponentInitialization(t *testing.T) {
	cfg := &config.Config{
		Consumer: config.Consumer{
			BatchSizeMax:    100,
			BatchTimeoutSec: 5,
		},
	}

	consumer := NewConsumer(cfg, new(MockQueueConsumer), new(MockRegistrationRepository), zap.NewNop())

	assert.NotNil(t, consumer.receiver)
	assert.NotNil(t, consumer.parser)
	assert.NotNil(t, consumer.batchWriter)
	assert.Equal(t, 100, consumer.batchWriter.config.MaxBatchSize)
	assert.Equal(t, 5*time.Second, consumer.batchWriter.config.FlushTimeout)
}
