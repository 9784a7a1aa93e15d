package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/dto"
	"github.com/BarkinBalci/registration-analytics-service/internal/normalize"
	"github.com/BarkinBalci/registration-analytics-service/internal/queue"
)

// ErrInvalidRegistration is returned for registrations that would be rejected when a snapshot is built
var ErrInvalidRegistration = errors.New("invalid registration")

// futureTolerance allows for clock skew between clients and the service
const futureTolerance = time.Minute

// RegistrationService validates registrations and publishes them to the ingestion queue
type RegistrationService struct {
	publisher  queue.QueuePublisher
	normalizer *normalize.Normalizer
	now        func() time.Time
	log        *zap.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(publisher queue.QueuePublisher, log *zap.Logger) *RegistrationService {
	return &RegistrationService{
		publisher:  publisher,
		normalizer: normalize.NewNormalizer(),
		now:        time.Now,
		log:        log,
	}
}

// toRawRecord maps a request onto canonical raw fields, leaving out empty values
func toRawRecord(req *dto.RegistrationRequest) domain.RawRecord {
	raw := domain.RawRecord{}
	set := func(field, value string) {
		if value != "" {
			raw[field] = value
		}
	}

	set(domain.FieldRegistrantID, req.RegistrantID)
	set(domain.FieldRegistrationID, req.RegistrationID)
	set(domain.FieldEventID, req.EventID)
	set(domain.FieldEventName, req.EventName)
	set(domain.FieldRegisteredAt, req.RegisteredAt)
	set(domain.FieldStatus, req.Status)
	set(domain.FieldCategory, req.Category)
	set(domain.FieldRegion, req.Region)
	set(domain.FieldTicketType, req.TicketType)
	set(domain.FieldGender, req.Gender)
	set(domain.FieldBirthDate, req.BirthDate)
	if req.Price != "" {
		raw[domain.FieldPrice] = req.Price
	}
	if req.IsVirtual != nil {
		raw[domain.FieldVirtual] = *req.IsVirtual
	}
	return raw
}

// ProcessRegistration validates a registration and publishes it, returning its content-derived key
func (s *RegistrationService) ProcessRegistration(ctx context.Context, req *dto.RegistrationRequest) (string, error) {
	raw := toRawRecord(req)

	record, rejection := s.normalizer.Normalize(0, raw)
	if rejection != nil {
		return "", fmt.Errorf("%w: %s on %s", ErrInvalidRegistration, rejection.Reason, rejection.Field)
	}

	if now := s.now(); record.RegisteredAt.After(now.Add(futureTolerance)) {
		s.log.Warn("Timestamp validation failed: future timestamp",
			zap.Time("registered_at", record.RegisteredAt),
			zap.Time("current_time", now),
			zap.String("event_id", req.EventID))
		return "", fmt.Errorf("%w: registered_at cannot be in the future: %s", ErrInvalidRegistration, req.RegisteredAt)
	}

	key, err := domain.MessageKey(raw)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to marshal registration: %w", err)
	}

	if err := s.publisher.PublishRegistration(ctx, key, body); err != nil {
		return "", fmt.Errorf("failed to publish registration to queue: %w", err)
	}

	return key, nil
}

// ProcessBulkRegistrations validates and publishes multiple registrations. Failures are reported per registration.
func (s *RegistrationService) ProcessBulkRegistrations(ctx context.Context, reqs []dto.RegistrationRequest) ([]string, []string, error) {
	var keys []string
	var errs []string

	for i := range reqs {
		key, err := s.ProcessRegistration(ctx, &reqs[i])
		if err != nil {
			errs = append(errs, fmt.Sprintf("registration %d: %s", i, err))
			s.log.Warn("Failed to process registration in bulk",
				zap.Int("index", i),
				zap.Error(err),
				zap.String("event_id", reqs[i].EventID))
			continue
		}
		keys = append(keys, key)
	}

	return keys, errs, nil
}
