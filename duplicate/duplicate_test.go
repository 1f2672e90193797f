package duplicate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/geomath"
	"crowdcare-be/models"
)

type fakeClassifier struct {
	scores   map[string]float64
	err      error
	errAfter int // successful calls before err kicks in
	calls    int
}

func (f *fakeClassifier) Similarity(_ context.Context, _ Submission, candidate *models.Report) (float64, error) {
	f.calls++
	if f.err != nil && f.calls > f.errAfter {
		return 0, f.err
	}
	return f.scores[candidate.ID.Hex()], nil
}

var submissionPoint = geomath.Coordinate{Latitude: 22.7512, Longitude: 75.8754}

func newSubmission() Submission {
	return Submission{
		Title:    "Pothole near the market",
		Category: "Road",
		Location: submissionPoint,
	}
}

func openReport(lat, lon float64, createdAt time.Time) models.Report {
	return models.Report{
		ID:        primitive.NewObjectID(),
		Category:  models.Road,
		Status:    models.Reported,
		Location:  geomath.Coordinate{Latitude: lat, Longitude: lon},
		CreatedAt: createdAt,
	}
}

func TestFindDuplicateEmptyPool(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)

	match, err := f.FindDuplicate(context.Background(), newSubmission(), nil)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindDuplicateAllOutOfRadius(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)
	pool := []models.Report{
		openReport(22.7602, 75.8754, time.Now()), // ~1km away
		openReport(22.7512, 75.8850, time.Now()), // ~1km away
	}

	match, err := f.FindDuplicate(context.Background(), newSubmission(), pool)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindDuplicateEffectivelySamePoint(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)
	existing := openReport(22.7512001, 75.8754001, time.Now())

	match, err := f.FindDuplicate(context.Background(), newSubmission(), []models.Report{existing})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, existing.ID, match.ExistingID)
	assert.Less(t, match.DistanceMeters, 1.0)
}

func TestFindDuplicateNearestWins(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)
	far := openReport(22.75135, 75.8754, time.Now()) // ~17m
	near := openReport(22.75125, 75.8754, time.Now()) // ~6m
	pool := []models.Report{far, near}

	match, err := f.FindDuplicate(context.Background(), newSubmission(), pool)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, near.ID, match.ExistingID)
}

func TestFindDuplicateTieBreakEarliestCreated(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)
	older := openReport(22.75125, 75.8754, time.Now().Add(-time.Hour))
	newer := openReport(22.75125, 75.8754, time.Now())
	pool := []models.Report{newer, older}

	match, err := f.FindDuplicate(context.Background(), newSubmission(), pool)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, older.ID, match.ExistingID)
}

func TestFindDuplicateSkipsResolvedDeletedAndOtherCategory(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)

	resolved := openReport(22.7512, 75.8754, time.Now())
	resolved.Status = models.Resolved

	deleted := openReport(22.7512, 75.8754, time.Now())
	deleted.Status = models.Deleted
	deleted.IsDeleted = true

	water := openReport(22.7512, 75.8754, time.Now())
	water.Category = models.Water

	match, err := f.FindDuplicate(context.Background(), newSubmission(),
		[]models.Report{resolved, deleted, water})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindDuplicateCategoryComparisonIsCaseInsensitive(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)
	existing := openReport(22.7512, 75.8754, time.Now())

	sub := newSubmission()
	sub.Category = "  road "

	match, err := f.FindDuplicate(context.Background(), sub, []models.Report{existing})
	require.NoError(t, err)
	assert.NotNil(t, match)
}

func TestFindDuplicateClassifierBelowThreshold(t *testing.T) {
	existing := openReport(22.7512, 75.8754, time.Now())
	classifier := &fakeClassifier{scores: map[string]float64{existing.ID.Hex(): 0.2}}
	f := NewFinder(classifier, 30, 0.5)

	match, err := f.FindDuplicate(context.Background(), newSubmission(), []models.Report{existing})
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Equal(t, 1, classifier.calls)
}

func TestFindDuplicatePrefersNearestQualifyingCandidate(t *testing.T) {
	near := openReport(22.75125, 75.8754, time.Now()) // ~6m, low score
	far := openReport(22.75135, 75.8754, time.Now())  // ~17m, high score
	classifier := &fakeClassifier{scores: map[string]float64{
		near.ID.Hex(): 0.1,
		far.ID.Hex():  0.9,
	}}
	f := NewFinder(classifier, 30, 0.5)

	match, err := f.FindDuplicate(context.Background(), newSubmission(), []models.Report{near, far})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, far.ID, match.ExistingID)
	assert.Equal(t, 0.9, match.Score)
}

func TestFindDuplicateClassifierUnavailableDegradesToDistance(t *testing.T) {
	existing := openReport(22.7512, 75.8754, time.Now())
	classifier := &fakeClassifier{err: errors.New("service down")}
	f := NewFinder(classifier, 30, 0.5)

	match, err := f.FindDuplicate(context.Background(), newSubmission(), []models.Report{existing})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, existing.ID, match.ExistingID)
}

func TestFindDuplicateMidLoopFailureReconsidersAllSurvivors(t *testing.T) {
	near := openReport(22.75125, 75.8754, time.Now()) // ~6m, scored below threshold
	far := openReport(22.75135, 75.8754, time.Now())  // ~17m, classifier dies here
	classifier := &fakeClassifier{
		scores:   map[string]float64{near.ID.Hex(): 0.1},
		err:      errors.New("service down"),
		errAfter: 1,
	}
	f := NewFinder(classifier, 30, 0.5)

	// Once scoring is gone the near candidate must come back into play
	// even though it already failed the threshold.
	match, err := f.FindDuplicate(context.Background(), newSubmission(), []models.Report{near, far})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, near.ID, match.ExistingID)
	assert.Equal(t, 2, classifier.calls)
}

func TestFindDuplicateInvalidSubmissionCoordinate(t *testing.T) {
	f := NewFinder(nil, 30, 0.5)
	sub := newSubmission()
	sub.Location = geomath.Coordinate{Latitude: 120, Longitude: 0}

	_, err := f.FindDuplicate(context.Background(), sub, nil)
	assert.ErrorIs(t, err, geomath.ErrInvalidCoordinate)
}
