package consumer

import (
	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into registrations
type MessageParser interface {
	Parse(body []byte) (*domain.IngestedRegistration, error)
}
