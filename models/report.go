package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/geomath"
)

// ReportCategory enum
type ReportCategory string

const (
	Road        ReportCategory = "Road"
	Water       ReportCategory = "Water"
	Sanitation  ReportCategory = "Sanitation"
	Electricity ReportCategory = "Electricity"
	Other       ReportCategory = "Other"
)

// ValidCategory checks a category string against the known set.
func ValidCategory(c string) bool {
	switch ReportCategory(c) {
	case Road, Water, Sanitation, Electricity, Other:
		return true
	}
	return false
}

// ReportStatus enum. Transitions move forward one stage at a time and are
// driven by the resolution coordinator; Resolved and Deleted are terminal.
type ReportStatus string

const (
	Reported     ReportStatus = "reported"
	Acknowledged ReportStatus = "acknowledged"
	InProgress   ReportStatus = "in_progress"
	Resolved     ReportStatus = "resolved"
	Deleted      ReportStatus = "deleted"
)

// OpenStatuses are the statuses a report can be resolved from. Also the pool
// considered by duplicate detection.
var OpenStatuses = []ReportStatus{Reported, Acknowledged, InProgress}

// IsOpen reports whether the status still allows admin transitions.
func (s ReportStatus) IsOpen() bool {
	switch s {
	case Reported, Acknowledged, InProgress:
		return true
	}
	return false
}

// StatusStageIndex returns the position of an open-lifecycle status, used to
// forbid skipping stages. Resolved and Deleted are not part of the ladder.
func StatusStageIndex(s ReportStatus) (int, bool) {
	switch s {
	case Reported:
		return 0, true
	case Acknowledged:
		return 1, true
	case InProgress:
		return 2, true
	}
	return 0, false
}

// StatusHistoryEntry is one transition appended to the report's history.
type StatusHistoryEntry struct {
	Status    ReportStatus `bson:"status" json:"status"`
	ChangedBy string       `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time    `bson:"changedAt" json:"changedAt"`
	Notes     string       `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ResolutionRecord is the durable outcome of a successful resolution attempt.
// It carries the audit trail for the multi-proof gate: where the evidence
// photo was taken, how far from the reported location that was, and whether
// the admin passed the liveness check.
type ResolutionRecord struct {
	ResolvedBy         string             `bson:"resolvedBy" json:"resolvedBy"`
	ResolvedAt         time.Time          `bson:"resolvedAt" json:"resolvedAt"`
	EvidenceImageURL   string             `bson:"evidenceImageUrl,omitempty" json:"evidenceImageUrl,omitempty"`
	EvidenceCoordinate geomath.Coordinate `bson:"evidenceCoordinate" json:"evidenceCoordinate"`
	DistanceMeters     float64            `bson:"distanceMeters" json:"distanceMeters"`
	AdminSelfieURL     string             `bson:"adminSelfieUrl,omitempty" json:"adminSelfieUrl,omitempty"`
	IdentityVerified   bool               `bson:"identityVerified" json:"identityVerified"`
	Notes              string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Report represents a civic issue reported by a citizen.
type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    ReportCategory     `bson:"category" json:"category"`
	Location    geomath.Coordinate `bson:"location" json:"location"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	ImageURL    *string            `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Status      ReportStatus       `bson:"status" json:"status"`
	ReporterID  primitive.ObjectID `bson:"reporterId" json:"reporterId"`

	// The municipal department responsible, derived from the category
	// at submission time.
	AssignedDepartment string `bson:"assignedDepartment,omitempty" json:"assignedDepartment,omitempty"`

	// A re-report after a deleted or stale report points back at the
	// original. Deleted reports are never resurrected.
	PreviousReportID *primitive.ObjectID `bson:"previousReportId,omitempty" json:"previousReportId,omitempty"`

	StatusHistory []StatusHistoryEntry `bson:"statusHistory,omitempty" json:"statusHistory,omitempty"`
	Resolution    *ResolutionRecord    `bson:"resolution,omitempty" json:"resolution,omitempty"`

	IsDeleted      bool       `bson:"isDeleted" json:"isDeleted"`
	DeletionReason string     `bson:"deletionReason,omitempty" json:"deletionReason,omitempty"`
	DeletedAt      *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`

	AcknowledgedAt *time.Time `bson:"acknowledgedAt,omitempty" json:"acknowledgedAt,omitempty"`
	InProgressAt   *time.Time `bson:"inProgressAt,omitempty" json:"inProgressAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
