package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/models"
)

// MemoryStore is an in-process ReportStore with the same conditional-update
// semantics as the mongo implementation. The coordinator's concurrency tests
// run against it, and it backs local development without a database.
type MemoryStore struct {
	mu       sync.Mutex
	reports  map[primitive.ObjectID]*models.Report
	upvotes  map[primitive.ObjectID]map[primitive.ObjectID]time.Time
	comments map[primitive.ObjectID][]models.Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:  make(map[primitive.ObjectID]*models.Report),
		upvotes:  make(map[primitive.ObjectID]map[primitive.ObjectID]time.Time),
		comments: make(map[primitive.ObjectID][]models.Comment),
	}
}

func (s *MemoryStore) CreateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.Status == "" {
		report.Status = models.Reported
	}
	if len(report.StatusHistory) == 0 {
		report.StatusHistory = []models.StatusHistoryEntry{
			newHistoryEntry(report.Status, report.ReporterID.Hex(), "Issue reported by citizen"),
		}
	}

	clone := *report
	s.reports[report.ID] = &clone
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *MemoryStore) get(id primitive.ObjectID) (*models.Report, error) {
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	return &clone, nil
}

func (s *MemoryStore) ListReports(_ context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Report
	for _, report := range s.reports {
		if report.IsDeleted {
			continue
		}
		if filter.Category != "" && filter.Category != "all" && string(report.Category) != filter.Category {
			continue
		}
		if len(filter.Categories) > 0 && !containsString(filter.Categories, string(report.Category)) {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && string(report.Status) != filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(report.Title), needle) &&
				!strings.Contains(strings.ToLower(report.Description), needle) {
				continue
			}
		}
		matched = append(matched, *report)
	}

	sort.Slice(matched, func(i, j int) bool {
		if filter.Oldest {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) ListReportsByReporter(_ context.Context, reporterID primitive.ObjectID) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Report
	for _, report := range s.reports {
		if report.ReporterID == reporterID {
			matched = append(matched, *report)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *MemoryStore) ListOpenReports(_ context.Context, category string) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var open []models.Report
	for _, report := range s.reports {
		if report.IsDeleted || !report.Status.IsOpen() {
			continue
		}
		if category != "" && string(report.Category) != category {
			continue
		}
		open = append(open, *report)
	}
	return open, nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.ReportStatus, entry models.StatusHistoryEntry) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.conflict(report); err != nil {
		return nil, err
	}
	if report.Status != from {
		return nil, ErrStatusConflict
	}

	now := time.Now().UTC()
	report.Status = to
	report.UpdatedAt = now
	switch to {
	case models.Acknowledged:
		report.AcknowledgedAt = &now
	case models.InProgress:
		report.InProgressAt = &now
	}
	report.StatusHistory = append(report.StatusHistory, entry)

	clone := *report
	return &clone, nil
}

func (s *MemoryStore) CommitResolution(_ context.Context, id primitive.ObjectID, record models.ResolutionRecord, entry models.StatusHistoryEntry) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.conflict(report); err != nil {
		return nil, err
	}

	report.Status = models.Resolved
	report.Resolution = &record
	report.UpdatedAt = time.Now().UTC()
	report.StatusHistory = append(report.StatusHistory, entry)

	clone := *report
	return &clone, nil
}

// conflict mirrors mongoStore.classifyConflict for a report that is not in
// an open status.
func (s *MemoryStore) conflict(report *models.Report) error {
	if report.IsDeleted || report.Status == models.Deleted {
		return ErrNotFound
	}
	if report.Status == models.Resolved {
		return ErrAlreadyResolved
	}
	return nil
}

func (s *MemoryStore) SoftDeleteReport(_ context.Context, id, reporterID primitive.ObjectID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	if report.ReporterID != reporterID {
		return ErrNotReporter
	}
	if err := s.conflict(report); err != nil {
		return err
	}

	now := time.Now().UTC()
	report.Status = models.Deleted
	report.IsDeleted = true
	report.DeletionReason = reason
	report.DeletedAt = &now
	report.UpdatedAt = now
	report.StatusHistory = append(report.StatusHistory, newHistoryEntry(models.Deleted, reporterID.Hex(), reason))
	return nil
}

func (s *MemoryStore) ToggleUpvote(_ context.Context, reportID, userID primitive.ObjectID) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok || report.IsDeleted {
		return false, 0, ErrNotFound
	}
	votes := s.upvotes[reportID]
	if votes == nil {
		votes = make(map[primitive.ObjectID]time.Time)
		s.upvotes[reportID] = votes
	}

	added := false
	if _, voted := votes[userID]; voted {
		delete(votes, userID)
	} else {
		votes[userID] = time.Now().UTC()
		added = true
	}
	return added, int64(len(votes)), nil
}

func (s *MemoryStore) CountUpvotes(_ context.Context, reportID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.upvotes[reportID])), nil
}

func (s *MemoryStore) HasUpvoted(_ context.Context, reportID, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.upvotes[reportID][userID]
	return ok, nil
}

func (s *MemoryStore) AddComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[comment.Report]
	if !ok || report.IsDeleted {
		return ErrNotFound
	}
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt = time.Now().UTC()
	s.comments[comment.Report] = append(s.comments[comment.Report], *comment)
	return nil
}

func (s *MemoryStore) ListComments(_ context.Context, reportID primitive.ObjectID) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment(nil), s.comments[reportID]...), nil
}

func (s *MemoryStore) Analytics(_ context.Context) (*AnalyticsSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &AnalyticsSummary{}
	byCategory := make(map[string]int64)
	for _, report := range s.reports {
		if report.IsDeleted {
			continue
		}
		summary.TotalReports++
		byCategory[string(report.Category)]++
		if report.Status.IsOpen() {
			summary.OpenReports++
		}
	}
	for name, count := range byCategory {
		summary.ByCategory = append(summary.ByCategory, CategoryCount{Name: name, Value: count})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Name < summary.ByCategory[j].Name
	})

	for i := 6; i >= 0; i-- {
		day := time.Now().UTC().AddDate(0, 0, -i)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		var count int64
		for _, report := range s.reports {
			if !report.CreatedAt.Before(day) && report.CreatedAt.Before(day.AddDate(0, 0, 1)) {
				count++
			}
		}
		summary.Last7Days = append(summary.Last7Days, DailyCount{
			Date:  day.Format("2006-01-02"),
			Count: count,
		})
	}

	type scored struct {
		id    primitive.ObjectID
		votes int64
	}
	var ranked []scored
	for id, votes := range s.upvotes {
		summary.TotalUpvotes += int64(len(votes))
		ranked = append(ranked, scored{id: id, votes: int64(len(votes))})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].votes > ranked[j].votes })
	for i, entry := range ranked {
		if i == 5 {
			break
		}
		report, ok := s.reports[entry.id]
		if !ok {
			continue
		}
		summary.TopUpvoted = append(summary.TopUpvoted, TopReport{
			ID:       report.ID,
			Title:    report.Title,
			Category: string(report.Category),
			Upvotes:  entry.votes,
		})
	}

	return summary, nil
}

func (s *MemoryStore) StatusCounts(_ context.Context, categories []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64)
	for _, report := range s.reports {
		if report.IsDeleted {
			continue
		}
		if len(categories) > 0 && !containsString(categories, string(report.Category)) {
			continue
		}
		counts[string(report.Status)]++
	}
	return counts, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
