package dto

import "encoding/json"

// RegistrationRequest represents a single registration submitted for ingestion
type RegistrationRequest struct {
	RegistrantID   string      `json:"registrant_id" binding:"required" example:"r-10231"`
	RegistrationID string      `json:"registration_id,omitempty" example:"reg-88812"`
	EventID        string      `json:"event_id" binding:"required" example:"bkk-marathon-2026"`
	EventName      string      `json:"event_name,omitempty" example:"Bangkok Marathon 2026"`
	RegisteredAt   string      `json:"registered_at" binding:"required" example:"2026-01-02T09:15:00Z"`
	Status         string      `json:"status,omitempty" example:"confirmed"`
	Category       string      `json:"category,omitempty" example:"marathon"`
	Region         string      `json:"region,omitempty" example:"Bangkok"`
	TicketType     string      `json:"ticket_type,omitempty" example:"Full Marathon 42.195 KM"`
	Price          json.Number `json:"price,omitempty" swaggertype:"number" example:"1200.50"`
	Gender         string      `json:"gender,omitempty" example:"female"`
	BirthDate      string      `json:"birth_date,omitempty" example:"1990-05-17"`
	IsVirtual      *bool       `json:"is_virtual,omitempty" example:"false"`
}

// PublishRegistrationsBulkRequest represents a bulk registration ingestion request
type PublishRegistrationsBulkRequest struct {
	Registrations []RegistrationRequest `json:"registrations" binding:"required,min=1,max=1000,dive"`
}

// GetMetricsRequest represents a metrics query. Filter parameters may be repeated or comma separated.
type GetMetricsRequest struct {
	From      string   `form:"from" example:"2026-01-01"`
	To        string   `form:"to" example:"2026-01-31"`
	GroupBy   string   `form:"group_by" example:"month,category"`
	Category  []string `form:"category" example:"marathon"`
	Region    []string `form:"region" example:"Bangkok"`
	Status    []string `form:"status" example:"confirmed"`
	Event     []string `form:"event" example:"bkk-marathon-2026"`
	Distance  []string `form:"distance" example:"42K"`
	Gender    []string `form:"gender" example:"female"`
	AgeGroup  []string `form:"age_group" example:"30-39"`
	PriceTier []string `form:"price_tier" example:"1000-1999"`
	Top       int      `form:"top" example:"10"`
	Sort      string   `form:"sort" example:"count_desc"`
}

// GetParticipantsRequest represents a participant activity query. Omitted values take the service defaults.
type GetParticipantsRequest struct {
	InactiveDays *int   `form:"inactive_days" example:"180"`
	Limit        *int   `form:"limit" example:"500"`
	AsOf         string `form:"as_of" example:"2026-02-01"`
}
