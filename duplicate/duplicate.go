// Package duplicate decides whether a new submission describes an issue that
// has already been reported nearby. It runs synchronously before a report is
// persisted; a positive match rejects the submission and points the citizen
// at the existing report.
package duplicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/geomath"
	"crowdcare-be/models"
)

var log = logrus.WithField("prefix", "duplicate")

// Submission is the subset of a new report the finder needs.
type Submission struct {
	Title       string
	Description string
	Category    string
	Location    geomath.Coordinate
}

// SimilarityClassifier scores how likely two issue descriptions refer to the
// same underlying problem, in [0,1]. It is an external capability; when it
// is unavailable the finder degrades to distance-only matching.
type SimilarityClassifier interface {
	Similarity(ctx context.Context, submission Submission, candidate *models.Report) (float64, error)
}

// Match points at the existing open report the submission duplicates.
type Match struct {
	ExistingID     primitive.ObjectID
	DistanceMeters float64
	Score          float64
}

// DuplicateFoundError is the submission-time rejection signal. Not an error
// to alarm on: the caller redirects the citizen to the existing report.
type DuplicateFoundError struct {
	Match Match
}

func (e *DuplicateFoundError) Error() string {
	return fmt.Sprintf("duplicate of report %s (%.2fm away)",
		e.Match.ExistingID.Hex(), e.Match.DistanceMeters)
}

// Finder filters a candidate pool by status, category and radius, then asks
// the classifier to confirm before declaring a duplicate.
type Finder struct {
	classifier     SimilarityClassifier
	radiusMeters   float64
	scoreThreshold float64
}

func NewFinder(classifier SimilarityClassifier, radiusMeters, scoreThreshold float64) *Finder {
	return &Finder{
		classifier:     classifier,
		radiusMeters:   radiusMeters,
		scoreThreshold: scoreThreshold,
	}
}

// FindDuplicate returns the nearest qualifying open report, or nil when the
// submission is genuinely new. Tie-break between equidistant candidates is
// earliest CreatedAt. The only error it returns is an invalid submission
// coordinate; classifier failures degrade to distance-only matching.
func (f *Finder) FindDuplicate(ctx context.Context, submission Submission, candidates []models.Report) (*Match, error) {
	if !submission.Location.Valid() {
		return nil, geomath.ErrInvalidCoordinate
	}

	category := strings.ToLower(strings.TrimSpace(submission.Category))

	type survivor struct {
		report   *models.Report
		distance float64
	}
	var survivors []survivor
	for i := range candidates {
		candidate := &candidates[i]

		if candidate.Status == models.Resolved || candidate.Status == models.Deleted || candidate.IsDeleted {
			continue
		}
		if strings.ToLower(strings.TrimSpace(string(candidate.Category))) != category {
			continue
		}

		distance, err := geomath.Distance(submission.Location, candidate.Location)
		if err != nil {
			// A stored report with a broken coordinate cannot block
			// new submissions.
			log.WithError(err).Warnf("skipping candidate %s", candidate.ID.Hex())
			continue
		}
		if distance > f.radiusMeters {
			continue
		}
		survivors = append(survivors, survivor{report: candidate, distance: distance})
	}

	if len(survivors) == 0 {
		return nil, nil
	}

	type scored struct {
		survivor
		score float64
	}

	var qualifying []scored
	degraded := f.classifier == nil
	if !degraded {
		for _, s := range survivors {
			score, err := f.classifier.Similarity(ctx, submission, s.report)
			if err != nil {
				log.WithError(err).Warn("classifier unavailable, degrading to distance-only matching")
				degraded = true
				break
			}
			if score < f.scoreThreshold {
				continue
			}
			qualifying = append(qualifying, scored{survivor: s, score: score})
		}
	}
	if degraded {
		// Distance is the only signal now, so every radius survivor is
		// back in play, including any already skipped on score.
		qualifying = qualifying[:0]
		for _, s := range survivors {
			qualifying = append(qualifying, scored{survivor: s})
		}
	}

	var best *Match
	var bestCandidate *models.Report
	for _, q := range qualifying {
		if best == nil ||
			q.distance < best.DistanceMeters ||
			(q.distance == best.DistanceMeters && q.report.CreatedAt.Before(bestCandidate.CreatedAt)) {
			best = &Match{ExistingID: q.report.ID, DistanceMeters: q.distance, Score: q.score}
			bestCandidate = q.report
		}
	}

	return best, nil
}
