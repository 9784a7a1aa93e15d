package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_filter"`
	Message string `json:"message,omitempty" example:"invalid filter: unknown dimension \"colour\""`
}

// PublishRegistrationResponse represents a successful registration ingestion response
type PublishRegistrationResponse struct {
	RegistrationKey string `json:"registration_key" example:"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"`
	Status          string `json:"status" example:"accepted"`
}

// PublishBulkRegistrationsResponse represents a bulk registration ingestion response
type PublishBulkRegistrationsResponse struct {
	Accepted         int      `json:"accepted" example:"5"`
	Rejected         int      `json:"rejected" example:"0"`
	RegistrationKeys []string `json:"registration_keys,omitempty"`
	Errors           []string `json:"errors,omitempty" example:"registration 3: registered_at cannot be in the future"`
}

// MetricsData holds the counters and derived rates of one bucket. Money and rates are decimal strings.
type MetricsData struct {
	Registrations       int64  `json:"registrations" example:"1500"`
	Confirmed           int64  `json:"confirmed" example:"1200"`
	Cancelled           int64  `json:"cancelled" example:"100"`
	Waitlisted          int64  `json:"waitlisted" example:"150"`
	Unknown             int64  `json:"unknown" example:"50"`
	Virtual             int64  `json:"virtual" example:"30"`
	DistinctRegistrants uint64 `json:"distinct_registrants" example:"1320"`
	Revenue             string `json:"revenue" example:"1540200.00"`
	ConversionRate      string `json:"conversion_rate" example:"0.827586"`
	CancellationRate    string `json:"cancellation_rate" example:"0.068966"`
	WaitlistRate        string `json:"waitlist_rate" example:"0.103448"`
	AveragePrice        string `json:"average_price" example:"1101.07"`
}

// MetricsRow represents one bucket of a metrics query
type MetricsRow struct {
	Bucket     string            `json:"bucket,omitempty" example:"2026-01-01"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	MetricsData
}

// GetMetricsResponse represents the metrics query response
type GetMetricsResponse struct {
	SnapshotVersion int64        `json:"snapshot_version" example:"3"`
	From            string       `json:"from,omitempty" example:"2026-01-01"`
	To              string       `json:"to,omitempty" example:"2026-01-31"`
	Granularity     string       `json:"granularity,omitempty" example:"month"`
	GroupBy         []string     `json:"group_by,omitempty" example:"category"`
	Totals          MetricsData  `json:"totals"`
	Rows            []MetricsRow `json:"rows"`
	Truncated       bool         `json:"truncated" example:"false"`
}

// QualityReportResponse represents the data-quality report of the active snapshot
type QualityReportResponse struct {
	Source          string         `json:"source,omitempty" example:"csv:data/raw/bkk_data_final.csv"`
	SnapshotVersion int64          `json:"snapshot_version" example:"3"`
	RunID           string         `json:"run_id" example:"3b241101-e2bb-4255-8caf-4136c566a962"`
	Received        int            `json:"received" example:"10250"`
	Accepted        int            `json:"accepted" example:"10000"`
	Duplicates      int            `json:"duplicates" example:"200"`
	Rejected        map[string]int `json:"rejected"`
	RejectedTotal   int            `json:"rejected_total" example:"50"`
	FirstDay        string         `json:"first_day,omitempty" example:"2025-10-01"`
	LastDay         string         `json:"last_day,omitempty" example:"2026-01-31"`
	BuiltAt         string         `json:"built_at" example:"2026-02-01T08:00:00Z"`
	DurationMs      int64          `json:"duration_ms" example:"412"`
}

// ParticipantRow represents the registration activity of one registrant
type ParticipantRow struct {
	RegistrantID     string `json:"registrant_id" example:"100234"`
	LastRegistration string `json:"last_registration" example:"2025-06-01"`
	DaysSinceLast    int    `json:"days_since_last" example:"245"`
	Registrations    int64  `json:"registrations" example:"1"`
}

// GetParticipantsResponse lists inactive and least active registrants of the active snapshot
type GetParticipantsResponse struct {
	SnapshotVersion int64            `json:"snapshot_version" example:"3"`
	AsOf            string           `json:"as_of" example:"2026-02-01"`
	InactiveDays    int              `json:"inactive_days" example:"180"`
	Limit           int              `json:"limit" example:"500"`
	Participants    int              `json:"participants" example:"8200"`
	InactiveTotal   int              `json:"inactive_total" example:"1200"`
	Inactive        []ParticipantRow `json:"inactive"`
	LeastActive     []ParticipantRow `json:"least_active"`
}
