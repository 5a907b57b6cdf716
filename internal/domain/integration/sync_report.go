package integration

import (
	"time"

	"github.com/google/uuid"
)

// SyncEntity identifies which walker produced a report
type SyncEntity string

const (
	SyncEntityOrders   SyncEntity = "ORDERS"
	SyncEntityProducts SyncEntity = "PRODUCTS"
)

// String returns the string representation of SyncEntity
func (e SyncEntity) String() string {
	return string(e)
}

// SyncStatus represents the outcome of a walker run
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
	SyncStatusSkipped SyncStatus = "SKIPPED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed, SyncStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncFailure records one record that could not be processed
type SyncFailure struct {
	ExternalID   string `json:"external_id"`
	ErrorMessage string `json:"error_message"`
}

// SyncReport summarizes one walker run for one store
type SyncReport struct {
	StoreID    uuid.UUID     `json:"store_id"`
	TenantID   uuid.UUID     `json:"tenant_id"`
	Entity     SyncEntity    `json:"entity"`
	Status     SyncStatus    `json:"status"`
	Pages      int           `json:"pages"`
	Processed  int           `json:"processed"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Failed     int           `json:"failed"`
	Failures   []SyncFailure `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	// Error is set when the run aborted
	Error string `json:"error,omitempty"`
}

// NewSyncReport starts a report for a store
func NewSyncReport(store *Store, entity SyncEntity, startedAt time.Time) *SyncReport {
	return &SyncReport{
		StoreID:   store.ID,
		TenantID:  store.TenantID,
		Entity:    entity,
		StartedAt: startedAt,
		Failures:  make([]SyncFailure, 0),
	}
}

// RecordSuccess counts one processed record
func (r *SyncReport) RecordSuccess(created bool) {
	r.Processed++
	if created {
		r.Created++
	} else {
		r.Updated++
	}
}

// RecordFailure counts one record that failed without aborting the run
func (r *SyncReport) RecordFailure(externalID string, err error) {
	r.Processed++
	r.Failed++
	r.Failures = append(r.Failures, SyncFailure{
		ExternalID:   externalID,
		ErrorMessage: err.Error(),
	})
}

// Finish sets the final status. A non-nil err marks the run as aborted.
func (r *SyncReport) Finish(finishedAt time.Time, err error) {
	r.FinishedAt = finishedAt
	switch {
	case err != nil:
		r.Status = SyncStatusFailed
		r.Error = err.Error()
	case r.Failed == 0:
		r.Status = SyncStatusSuccess
	case r.Failed < r.Processed:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
}

// Skip reasons
const (
	SkipReasonDisabled = "sync disabled for store"
	SkipReasonLocked   = "sync running on another instance"
)

// SkippedBecause reports whether the run was skipped for reason
func (r *SyncReport) SkippedBecause(reason string) bool {
	return r.Status == SyncStatusSkipped && r.Error == reason
}

// Skip marks a run that never started
func (r *SyncReport) Skip(finishedAt time.Time, reason string) {
	r.FinishedAt = finishedAt
	r.Status = SyncStatusSkipped
	r.Error = reason
}

// Duration returns the wall-clock duration of the run
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncTrigger names what started a sync run
type SyncTrigger string

const (
	TriggerScheduler SyncTrigger = "scheduler"
	TriggerWebhook   SyncTrigger = "webhook"
	TriggerManual    SyncTrigger = "manual"
)

// String returns the string representation of SyncTrigger
func (t SyncTrigger) String() string {
	return string(t)
}
