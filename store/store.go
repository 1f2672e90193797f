// Package store is the persistence boundary. The resolution coordinator and
// the HTTP layer both read and write through ReportStore, so the push path
// and the polling fallback can never disagree about current state.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/models"
)

var (
	ErrNotFound = errors.New("report not found")

	// ErrAlreadyResolved is what the loser of a resolve race observes.
	// Terminal for that attempt, nothing to alarm on.
	ErrAlreadyResolved = errors.New("report already resolved")

	// ErrStatusConflict means the report's status changed under the
	// caller between read and transition.
	ErrStatusConflict = errors.New("report status changed concurrently")

	ErrNotReporter    = errors.New("only the reporting citizen can delete a report")
	ErrAlreadyDeleted = errors.New("report already deleted")
)

// ReportFilter narrows ListReports. Zero values mean "no constraint".
type ReportFilter struct {
	Category string
	// Categories restricts to a set, used for department-scoped
	// listings. Ignored when empty.
	Categories []string
	Status     string
	Search     string
	Page       int
	Limit      int
	Oldest     bool
}

// CategoryCount is one analytics bucket.
type CategoryCount struct {
	Name  string `bson:"name" json:"name"`
	Value int64  `bson:"value" json:"value"`
}

// DailyCount is one day in the submission trend series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TopReport is a most-upvoted entry for the dashboard.
type TopReport struct {
	ID       primitive.ObjectID `json:"id"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Upvotes  int64              `json:"upvotes"`
}

// AnalyticsSummary backs the aggregate-stats dashboard; aggregate hub
// subscribers mirror changes to these counters live.
type AnalyticsSummary struct {
	ByCategory   []CategoryCount `json:"reportsByCategory"`
	Last7Days    []DailyCount    `json:"last7Days"`
	TopUpvoted   []TopReport     `json:"topUpvotedReports"`
	TotalReports int64           `json:"totalReports"`
	TotalUpvotes int64           `json:"totalUpvotes"`
	OpenReports  int64           `json:"openReports"`
}

// ReportStore is everything the backend persists about reports. Status
// transitions and resolution commits are conditional updates: they succeed
// only if the report is still in the expected state, which is what makes
// two concurrent resolve attempts produce exactly one winner.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)
	ListReportsByReporter(ctx context.Context, reporterID primitive.ObjectID) ([]models.Report, error)

	// ListOpenReports returns the duplicate-detection candidate pool:
	// non-deleted reports whose status is not Resolved, optionally
	// narrowed to one category.
	ListOpenReports(ctx context.Context, category string) ([]models.Report, error)

	// TransitionStatus atomically moves a report from one open status to
	// another and appends the history entry. Returns ErrStatusConflict
	// when the report is no longer in `from`.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportStatus, entry models.StatusHistoryEntry) (*models.Report, error)

	// CommitResolution atomically moves an open report to Resolved and
	// folds the resolution record in. Returns ErrAlreadyResolved when a
	// concurrent attempt won.
	CommitResolution(ctx context.Context, id primitive.ObjectID, record models.ResolutionRecord, entry models.StatusHistoryEntry) (*models.Report, error)

	// SoftDeleteReport marks an open report deleted. Citizen-initiated
	// only; a deleted report is never resurrected.
	SoftDeleteReport(ctx context.Context, id, reporterID primitive.ObjectID, reason string) error

	ToggleUpvote(ctx context.Context, reportID, userID primitive.ObjectID) (added bool, total int64, err error)
	CountUpvotes(ctx context.Context, reportID primitive.ObjectID) (int64, error)
	HasUpvoted(ctx context.Context, reportID, userID primitive.ObjectID) (bool, error)

	AddComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, reportID primitive.ObjectID) ([]models.Comment, error)

	Analytics(ctx context.Context) (*AnalyticsSummary, error)

	// StatusCounts tallies non-deleted reports by status, restricted to
	// the given categories. Backs the per-department dashboards.
	StatusCounts(ctx context.Context, categories []string) (map[string]int64, error)
}

// newHistoryEntry is shared by both implementations.
func newHistoryEntry(status models.ReportStatus, changedBy, notes string) models.StatusHistoryEntry {
	return models.StatusHistoryEntry{
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: time.Now().UTC(),
		Notes:     notes,
	}
}
