package domain

import "time"

// ConversionState enumerates the client-observed lifecycle of a 3D conversion job.
type ConversionState string

const (
	ConversionIdle      ConversionState = "idle"
	ConversionRequested ConversionState = "requested"
	ConversionPolling   ConversionState = "polling"
	ConversionSucceeded ConversionState = "succeeded"
	ConversionFailed    ConversionState = "failed"
)

// Active reports whether a start request has been issued and the outcome is not yet known.
func (s ConversionState) Active() bool {
	return s == ConversionRequested || s == ConversionPolling
}

// FailureKind separates a rejected start call from a job the backend accepted but could not finish.
type FailureKind string

const (
	FailureRequest FailureKind = "request"
	FailureJob     FailureKind = "job"
)

// ConversionJob is a view model over server truth; it is never persisted.
type ConversionJob struct {
	ProductID    string          `json:"product_id"`
	ImageURL     string          `json:"image_url"`
	State        ConversionState `json:"state"`
	ModelURL     string          `json:"model_url,omitempty"`
	Failure      FailureKind     `json:"failure,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	Attempts     int             `json:"attempts"`
	RequestedAt  time.Time       `json:"requested_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ConversionEvent is emitted on every client-observed state change.
type ConversionEvent struct {
	ProductID  string          `json:"product_id"`
	From       ConversionState `json:"from"`
	To         ConversionState `json:"to"`
	ModelURL   string          `json:"model_url,omitempty"`
	Failure    FailureKind     `json:"failure,omitempty"`
	Error      string          `json:"error,omitempty"`
	Attempts   int             `json:"attempts"`
	HappenedAt int64           `json:"happened_at"`
}
