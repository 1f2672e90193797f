// Package resolution orchestrates the multi-proof resolve gate: geo-verified
// evidence, a liveness check on the operator, then a single atomic commit.
// Nothing is persisted before the commit, so an abandoned attempt leaves no
// state behind.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/broadcast"
	"crowdcare-be/geomath"
	"crowdcare-be/models"
	"crowdcare-be/store"
	"crowdcare-be/verification"
)

var log = logrus.WithField("prefix", "resolution")

// IdentityRejectedError means the classifier gave a definitive non-human
// answer and the deployment requires identity verification. Not retryable
// with the same capture.
type IdentityRejectedError struct {
	Reason string
}

func (e *IdentityRejectedError) Error() string {
	return "identity verification rejected: " + e.Reason
}

// InvalidTransitionError rejects a status update that breaks the lifecycle.
type InvalidTransitionError struct {
	From   models.ReportStatus
	To     models.ReportStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move report from %s to %s: %s", e.From, e.To, e.Reason)
}

// ErrEvidenceRequired guards the resolved status: it is only reachable
// through ResolveReport with evidence, never through a plain status update.
var ErrEvidenceRequired = errors.New("resolution requires geo-verified evidence, use the resolve flow")

// Config is the tunable part of the gate.
type Config struct {
	// IdentityRequired turns a definitive non-human classifier result
	// into a hard block. When false the result is recorded and resolution
	// proceeds, matching the permissive product behavior.
	IdentityRequired bool
	// IdentityTimeout bounds the only network call inside the gate.
	IdentityTimeout time.Duration
}

// ResolveRequest is one admin resolve attempt. Transient: it is folded into
// the report's resolution record on success and discarded on failure.
type ResolveRequest struct {
	ReportID         primitive.ObjectID
	AdminID          primitive.ObjectID
	EvidenceImage    []byte
	EvidenceImageURL string
	AdminSelfie      []byte
	AdminSelfieURL   string
	Notes            string
}

// ResolveResult reports the committed outcome with its audit numbers.
type ResolveResult struct {
	Report             *models.Report
	DistanceMeters     float64
	EvidenceCoordinate geomath.Coordinate
	IdentityVerified   bool
}

// Coordinator serializes state transitions per report through the store's
// conditional updates and publishes every committed change to the hub.
type Coordinator struct {
	store    store.ReportStore
	evidence *verification.EvidenceValidator
	identity verification.IdentityVerifier
	hub      *broadcast.Hub
	cfg      Config
}

func NewCoordinator(reportStore store.ReportStore, evidence *verification.EvidenceValidator, identity verification.IdentityVerifier, hub *broadcast.Hub, cfg Config) *Coordinator {
	if cfg.IdentityTimeout <= 0 {
		cfg.IdentityTimeout = 10 * time.Second
	}
	return &Coordinator{
		store:    reportStore,
		evidence: evidence,
		identity: identity,
		hub:      hub,
		cfg:      cfg,
	}
}

// ResolveReport runs the full gate. Two concurrent calls for the same report
// produce exactly one winner; the loser gets store.ErrAlreadyResolved.
func (c *Coordinator) ResolveReport(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	report, err := c.store.GetReport(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if report.IsDeleted || report.Status == models.Deleted {
		return nil, store.ErrNotFound
	}
	if report.Status == models.Resolved {
		return nil, store.ErrAlreadyResolved
	}

	evidenceResult, err := c.evidence.Validate(req.EvidenceImage, report.Location)
	if err != nil {
		return nil, err
	}

	identityVerified, err := c.verifyIdentity(ctx, req)
	if err != nil {
		return nil, err
	}

	record := models.ResolutionRecord{
		ResolvedBy:         req.AdminID.Hex(),
		ResolvedAt:         time.Now().UTC(),
		EvidenceImageURL:   req.EvidenceImageURL,
		EvidenceCoordinate: evidenceResult.EvidenceCoordinate,
		DistanceMeters:     evidenceResult.DistanceMeters,
		AdminSelfieURL:     req.AdminSelfieURL,
		IdentityVerified:   identityVerified,
		Notes:              req.Notes,
	}
	entry := models.StatusHistoryEntry{
		Status:    models.Resolved,
		ChangedBy: req.AdminID.Hex(),
		ChangedAt: record.ResolvedAt,
		Notes:     fmt.Sprintf("Resolved with geo-verified evidence, %.2fm from report", record.DistanceMeters),
	}

	updated, err := c.store.CommitResolution(ctx, req.ReportID, record, entry)
	if err != nil {
		return nil, err
	}

	// The commit is durable; from here delivery is best-effort.
	c.hub.Publish(broadcast.NewResolutionUpdateEvent(
		req.ReportID.Hex(),
		req.EvidenceImageURL,
		evidenceResult.EvidenceCoordinate,
		evidenceResult.DistanceMeters,
		req.AdminID.Hex(),
	))

	log.WithFields(logrus.Fields{
		"report_id":         req.ReportID.Hex(),
		"admin_id":          req.AdminID.Hex(),
		"distance_m":        evidenceResult.DistanceMeters,
		"identity_verified": identityVerified,
	}).Info("report resolved")

	return &ResolveResult{
		Report:             updated,
		DistanceMeters:     evidenceResult.DistanceMeters,
		EvidenceCoordinate: evidenceResult.EvidenceCoordinate,
		IdentityVerified:   identityVerified,
	}, nil
}

func (c *Coordinator) verifyIdentity(ctx context.Context, req ResolveRequest) (bool, error) {
	if len(req.AdminSelfie) == 0 {
		if c.cfg.IdentityRequired {
			return false, &IdentityRejectedError{Reason: "no operator capture provided"}
		}
		return false, nil
	}

	vctx, cancel := context.WithTimeout(ctx, c.cfg.IdentityTimeout)
	defer cancel()

	result, err := c.identity.VerifyHuman(vctx, req.AdminSelfie)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, verification.ErrVerificationTimeout
		}
		// Retryable: transport failure or caller cancellation, nothing
		// has been committed yet.
		return false, err
	}

	verified := result.FaceDetected && result.IsHuman
	if !verified {
		if c.cfg.IdentityRequired {
			reason := result.Reason
			if reason == "" {
				reason = "no live human face detected"
			}
			return false, &IdentityRejectedError{Reason: reason}
		}
		log.WithField("report_id", req.ReportID.Hex()).
			Warn("identity check failed, proceeding without verification")
	}
	return verified, nil
}

// UpdateStatus performs a plain admin transition along the
// reported → acknowledged → in_progress ladder. Skipping a stage forward is
// rejected; moving backward is allowed. Resolved and Deleted are terminal
// and unreachable from here.
func (c *Coordinator) UpdateStatus(ctx context.Context, reportID primitive.ObjectID, newStatus models.ReportStatus, changedBy, notes string) (*models.Report, error) {
	if newStatus == models.Resolved {
		return nil, ErrEvidenceRequired
	}
	newIdx, ok := models.StatusStageIndex(newStatus)
	if !ok {
		return nil, &InvalidTransitionError{To: newStatus, Reason: "unknown target status"}
	}

	report, err := c.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.IsDeleted || report.Status == models.Deleted {
		return nil, store.ErrNotFound
	}
	if report.Status == models.Resolved {
		return nil, store.ErrAlreadyResolved
	}
	if report.Status == newStatus {
		return report, nil
	}

	curIdx, _ := models.StatusStageIndex(report.Status)
	if newIdx > curIdx+1 {
		return nil, &InvalidTransitionError{
			From:   report.Status,
			To:     newStatus,
			Reason: "cannot skip lifecycle stages",
		}
	}

	entry := models.StatusHistoryEntry{
		Status:    newStatus,
		ChangedBy: changedBy,
		ChangedAt: time.Now().UTC(),
		Notes:     notes,
	}
	updated, err := c.store.TransitionStatus(ctx, reportID, report.Status, newStatus, entry)
	if err != nil {
		return nil, err
	}

	c.hub.Publish(broadcast.NewStatusUpdateEvent(
		reportID.Hex(),
		string(report.Status),
		string(newStatus),
		changedBy,
		notes,
	))
	return updated, nil
}
