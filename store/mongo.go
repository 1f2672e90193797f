package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crowdcare-be/models"
)

var log = logrus.WithField("prefix", "store")

const (
	ReportCollection  = "reports"
	UpvoteCollection  = "upvotes"
	CommentCollection = "comments"

	queryTimeout = 10 * time.Second
)

type mongoStore struct {
	db *mongo.Database
}

// NewMongoStore returns the mongo-backed ReportStore and ensures the unique
// (report, user) upvote index exists.
func NewMongoStore(db *mongo.Database) (ReportStore, error) {
	if err := models.EnsureUpvoteIndex(db.Collection(UpvoteCollection)); err != nil {
		return nil, err
	}
	return &mongoStore{db: db}, nil
}

func (s *mongoStore) reports() *mongo.Collection  { return s.db.Collection(ReportCollection) }
func (s *mongoStore) upvotes() *mongo.Collection  { return s.db.Collection(UpvoteCollection) }
func (s *mongoStore) comments() *mongo.Collection { return s.db.Collection(CommentCollection) }

func (s *mongoStore) CreateReport(ctx context.Context, report *models.Report) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

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

	_, err := s.reports().InsertOne(ctx, report)
	return err
}

func (s *mongoStore) GetReport(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var report models.Report
	err := s.reports().FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *mongoStore) ListReports(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := bson.M{"isDeleted": false}
	if filter.Category != "" && filter.Category != "all" {
		query["category"] = filter.Category
	}
	if len(filter.Categories) > 0 {
		query["category"] = bson.M{"$in": filter.Categories}
	}
	if filter.Status != "" && filter.Status != "all" {
		query["status"] = filter.Status
	}
	if filter.Search != "" {
		query["$or"] = []bson.M{
			{"title": bson.M{"$regex": filter.Search, "$options": "i"}},
			{"description": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}

	total, err := s.reports().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	order := -1
	if filter.Oldest {
		order = 1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: order}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.reports().Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *mongoStore) ListReportsByReporter(ctx context.Context, reporterID primitive.ObjectID) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.reports().Find(ctx,
		bson.M{"reporterId": reporterID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *mongoStore) ListOpenReports(ctx context.Context, category string) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := bson.M{
		"isDeleted": false,
		"status":    bson.M{"$in": models.OpenStatuses},
	}
	if category != "" {
		query["category"] = category
	}

	cursor, err := s.reports().Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *mongoStore) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportStatus, entry models.StatusHistoryEntry) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{"status": to, "updatedAt": now}
	switch to {
	case models.Acknowledged:
		set["acknowledgedAt"] = now
	case models.InProgress:
		set["inProgressAt"] = now
	}

	var updated models.Report
	err := s.reports().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from, "isDeleted": false},
		bson.M{"$set": set, "$push": bson.M{"statusHistory": entry}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, s.classifyConflict(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *mongoStore) CommitResolution(ctx context.Context, id primitive.ObjectID, record models.ResolutionRecord, entry models.StatusHistoryEntry) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var updated models.Report
	err := s.reports().FindOneAndUpdate(ctx,
		bson.M{
			"_id":       id,
			"isDeleted": false,
			"status":    bson.M{"$in": models.OpenStatuses},
		},
		bson.M{
			"$set": bson.M{
				"status":     models.Resolved,
				"resolution": record,
				"updatedAt":  time.Now().UTC(),
			},
			"$push": bson.M{"statusHistory": entry},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, s.classifyConflict(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"report_id":   id.Hex(),
		"resolved_by": record.ResolvedBy,
		"distance_m":  record.DistanceMeters,
	}).Info("resolution committed")
	return &updated, nil
}

// classifyConflict turns a failed conditional update into the precise error
// the caller needs to surface.
func (s *mongoStore) classifyConflict(ctx context.Context, id primitive.ObjectID) error {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if report.IsDeleted || report.Status == models.Deleted {
		return ErrNotFound
	}
	if report.Status == models.Resolved {
		return ErrAlreadyResolved
	}
	return ErrStatusConflict
}

func (s *mongoStore) SoftDeleteReport(ctx context.Context, id, reporterID primitive.ObjectID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	report, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if report.ReporterID != reporterID {
		return ErrNotReporter
	}

	now := time.Now().UTC()
	result, err := s.reports().UpdateOne(ctx,
		bson.M{
			"_id":       id,
			"isDeleted": false,
			"status":    bson.M{"$in": models.OpenStatuses},
		},
		bson.M{
			"$set": bson.M{
				"status":         models.Deleted,
				"isDeleted":      true,
				"deletionReason": reason,
				"deletedAt":      now,
				"updatedAt":      now,
			},
			"$push": bson.M{
				"statusHistory": newHistoryEntry(models.Deleted, reporterID.Hex(), reason),
			},
		})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return s.classifyConflict(ctx, id)
	}
	return nil
}

// reportExists reports whether a non-deleted report with the given ID is
// present. Upvote and comment writes land in their own collections, so
// they need this check up front to match the rest of the store.
func (s *mongoStore) reportExists(ctx context.Context, reportID primitive.ObjectID) error {
	count, err := s.reports().CountDocuments(ctx, bson.M{"_id": reportID, "isDeleted": false})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) ToggleUpvote(ctx context.Context, reportID, userID primitive.ObjectID) (bool, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := s.reportExists(ctx, reportID); err != nil {
		return false, 0, err
	}

	upvote := models.Upvote{
		ID:        primitive.NewObjectID(),
		Report:    reportID,
		User:      userID,
		CreatedAt: time.Now().UTC(),
	}

	added := true
	_, err := s.upvotes().InsertOne(ctx, upvote)
	if mongo.IsDuplicateKeyError(err) {
		// Already upvoted, the unique index caught the toggle.
		if _, err := s.upvotes().DeleteOne(ctx, bson.M{"report": reportID, "user": userID}); err != nil {
			return false, 0, err
		}
		added = false
	} else if err != nil {
		return false, 0, err
	}

	total, err := s.CountUpvotes(ctx, reportID)
	if err != nil {
		return added, 0, err
	}
	return added, total, nil
}

func (s *mongoStore) CountUpvotes(ctx context.Context, reportID primitive.ObjectID) (int64, error) {
	return s.upvotes().CountDocuments(ctx, bson.M{"report": reportID})
}

func (s *mongoStore) HasUpvoted(ctx context.Context, reportID, userID primitive.ObjectID) (bool, error) {
	count, err := s.upvotes().CountDocuments(ctx, bson.M{"report": reportID, "user": userID})
	return count > 0, err
}

func (s *mongoStore) AddComment(ctx context.Context, comment *models.Comment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := s.reportExists(ctx, comment.Report); err != nil {
		return err
	}

	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt = time.Now().UTC()
	_, err := s.comments().InsertOne(ctx, comment)
	return err
}

func (s *mongoStore) ListComments(ctx context.Context, reportID primitive.ObjectID) ([]models.Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.comments().Find(ctx,
		bson.M{"report": reportID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *mongoStore) Analytics(ctx context.Context) (*AnalyticsSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	summary := &AnalyticsSummary{}

	categoryPipeline := []bson.M{
		{"$match": bson.M{"isDeleted": false}},
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		{"$project": bson.M{"name": "$_id", "value": "$count", "_id": 0}},
	}
	categoryCursor, err := s.reports().Aggregate(ctx, categoryPipeline)
	if err != nil {
		return nil, err
	}
	defer categoryCursor.Close(ctx)
	if err := categoryCursor.All(ctx, &summary.ByCategory); err != nil {
		return nil, err
	}

	for i := 6; i >= 0; i-- {
		day := time.Now().UTC().AddDate(0, 0, -i)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		count, err := s.reports().CountDocuments(ctx, bson.M{
			"createdAt": bson.M{"$gte": day, "$lt": day.AddDate(0, 0, 1)},
		})
		if err != nil {
			count = 0
		}
		summary.Last7Days = append(summary.Last7Days, DailyCount{
			Date:  day.Format("2006-01-02"),
			Count: count,
		})
	}

	topPipeline := []bson.M{
		{"$group": bson.M{"_id": "$report", "upvotes": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"upvotes": -1}},
		{"$limit": 5},
	}
	topCursor, err := s.upvotes().Aggregate(ctx, topPipeline)
	if err != nil {
		return nil, err
	}
	defer topCursor.Close(ctx)

	var buckets []struct {
		ID      primitive.ObjectID `bson:"_id"`
		Upvotes int64              `bson:"upvotes"`
	}
	if err := topCursor.All(ctx, &buckets); err != nil {
		return nil, err
	}
	for _, bucket := range buckets {
		report, err := s.GetReport(ctx, bucket.ID)
		if err != nil {
			continue
		}
		summary.TopUpvoted = append(summary.TopUpvoted, TopReport{
			ID:       report.ID,
			Title:    report.Title,
			Category: string(report.Category),
			Upvotes:  bucket.Upvotes,
		})
	}

	if summary.TotalReports, err = s.reports().CountDocuments(ctx, bson.M{"isDeleted": false}); err != nil {
		return nil, err
	}
	if summary.TotalUpvotes, err = s.upvotes().CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if summary.OpenReports, err = s.reports().CountDocuments(ctx, bson.M{
		"isDeleted": false,
		"status":    bson.M{"$in": models.OpenStatuses},
	}); err != nil {
		return nil, err
	}

	return summary, nil
}

func (s *mongoStore) StatusCounts(ctx context.Context, categories []string) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	match := bson.M{"isDeleted": false}
	if len(categories) > 0 {
		match["category"] = bson.M{"$in": categories}
	}
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}

	cursor, err := s.reports().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var buckets []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.Count
	}
	return counts, nil
}
