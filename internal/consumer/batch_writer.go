package consumer

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter collects parsed registrations and stores them in batches.
// Messages carrying the same registration within one batch are stored once.
type BatchWriter struct {
	repository repository.RegistrationRepository
	config     BatchWriterConfig
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.RegistrationRepository, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		repository: repo,
		config:     config,
		log:        log,
	}
}

// pendingBatch groups envelopes by message key in arrival order
type pendingBatch struct {
	keys   []string
	groups map[string][]*Envelope
	size   int
}

func newPendingBatch() *pendingBatch {
	return &pendingBatch{groups: make(map[string][]*Envelope)}
}

func (b *pendingBatch) add(env *Envelope) {
	key := env.Registration.MessageKey
	if key == "" {
		// unkeyed registrations are never collapsed
		key = "\x00" + strconv.Itoa(b.size)
	}

	if _, ok := b.groups[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.groups[key] = append(b.groups[key], env)
	b.size++
}

// registrations returns one registration per key: the highest version, later arrivals winning ties
func (b *pendingBatch) registrations() []*domain.IngestedRegistration {
	out := make([]*domain.IngestedRegistration, 0, len(b.keys))
	for _, key := range b.keys {
		var kept *domain.IngestedRegistration
		for _, env := range b.groups[key] {
			if kept == nil || env.Registration.Version >= kept.Version {
				kept = env.Registration
			}
		}
		out = append(out, kept)
	}
	return out
}

func (b *pendingBatch) envelopes() []*Envelope {
	out := make([]*Envelope, 0, b.size)
	for _, key := range b.keys {
		out = append(out, b.groups[key]...)
	}
	return out
}

// Start batches envelopes from in until ctx is done or in is closed, flushing on size or timeout
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := newPendingBatch()
	flush := func(reason string) {
		if batch.size == 0 {
			return
		}
		w.log.Info("Flushing registration batch",
			zap.String("reason", reason),
			zap.Int("envelope_count", batch.size))
		w.processBatch(ctx, batch)
		batch = newPendingBatch()
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			flush("shutdown")
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				flush("input_closed")
				return
			}

			batch.add(envelope)
			if batch.size >= w.config.MaxBatchSize {
				flush("size")
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			flush("timeout")
		}
	}
}

// processBatch stores the collapsed batch, then acks every envelope on success or nacks them all
func (w *BatchWriter) processBatch(ctx context.Context, batch *pendingBatch) {
	registrations := batch.registrations()
	envelopes := batch.envelopes()

	if collapsed := len(envelopes) - len(registrations); collapsed > 0 {
		w.log.Debug("Collapsed repeated registrations in batch",
			zap.Int("collapsed", collapsed),
			zap.Int("distinct", len(registrations)))
	}

	insertedCount, err := w.repository.InsertBatch(ctx, registrations)
	if err != nil {
		w.log.Error("Failed to insert registration batch",
			zap.Error(err),
			zap.Int("registration_count", len(registrations)))
		w.settle(ctx, envelopes, (*Envelope).Nack, "nack")
		return
	}

	if insertedCount != len(registrations) {
		w.log.Warn("Partial insert success",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(registrations)))
		w.settle(ctx, envelopes, (*Envelope).Nack, "nack")
		return
	}

	w.log.Info("Stored registration batch",
		zap.Int("stored", insertedCount),
		zap.Int("messages", len(envelopes)))
	w.settle(ctx, envelopes, (*Envelope).Ack, "ack")
}

func (w *BatchWriter) settle(ctx context.Context, envelopes []*Envelope, fn func(*Envelope, context.Context) error, action string) {
	for _, env := range envelopes {
		if err := fn(env, ctx); err != nil {
			w.log.Error("Failed to settle envelope",
				zap.String("action", action),
				zap.String("message_key", env.Registration.MessageKey),
				zap.Error(err))
		}
	}
}
