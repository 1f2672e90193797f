package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdcare-be/middlewares"
	"crowdcare-be/models"
	"crowdcare-be/resolution"
	"crowdcare-be/store"
	"crowdcare-be/verification"
)

// maxUploadBytes caps each uploaded image read into memory.
const maxUploadBytes = 10 << 20

// ResolutionController serves the admin-facing resolution and status
// endpoints.
type ResolutionController struct {
	coordinator *resolution.Coordinator
	store       store.ReportStore
}

func NewResolutionController(coordinator *resolution.Coordinator, reportStore store.ReportStore) *ResolutionController {
	return &ResolutionController{coordinator: coordinator, store: reportStore}
}

// ResolveReport accepts a multipart form carrying the geotagged evidence
// photo and the admin's live selfie, runs the multi-proof gate and commits
// the resolution. The status flips only after everything passed.
func (rc *ResolutionController) ResolveReport(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	evidenceBytes, err := formFileBytes(c, "evidence")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "evidence photo is required"})
		return
	}

	// The selfie is optional at the transport level; the coordinator
	// decides whether its absence blocks the resolution.
	selfieBytes, _ := formFileBytes(c, "selfie")

	result, err := rc.coordinator.ResolveReport(c.Request.Context(), resolution.ResolveRequest{
		ReportID:         reportID,
		AdminID:          adminID,
		EvidenceImage:    evidenceBytes,
		EvidenceImageURL: c.PostForm("evidenceUrl"),
		AdminSelfie:      selfieBytes,
		AdminSelfieURL:   c.PostForm("selfieUrl"),
		Notes:            c.PostForm("notes"),
	})
	if err != nil {
		rc.writeResolveError(c, err)
		return
	}

	middlewares.RecordResolution("resolved")
	c.JSON(http.StatusOK, gin.H{
		"report":           result.Report,
		"distanceMeters":   result.DistanceMeters,
		"identityVerified": result.IdentityVerified,
	})
}

func (rc *ResolutionController) writeResolveError(c *gin.Context, err error) {
	var (
		missing     *verification.MissingLocationError
		outOfRadius *verification.OutOfRadiusError
		rejected    *resolution.IdentityRejectedError
	)

	switch {
	case errors.As(err, &missing):
		middlewares.RecordResolution("missing_location")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "evidence photo has no GPS metadata",
			"field": missing.Field,
		})
	case errors.As(err, &outOfRadius):
		middlewares.RecordResolution("out_of_radius")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          "evidence photo was taken too far from the report",
			"distanceMeters": outOfRadius.DistanceMeters,
			"maxMeters":      outOfRadius.MaxMeters,
		})
	case errors.As(err, &rejected):
		middlewares.RecordResolution("identity_rejected")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "identity verification failed",
			"reason": rejected.Reason,
		})
	case errors.Is(err, verification.ErrVerificationTimeout),
		errors.Is(err, verification.ErrVerificationUnavailable):
		middlewares.RecordResolution("identity_unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "identity verification is temporarily unavailable",
			"retryable": true,
		})
	case errors.Is(err, store.ErrAlreadyResolved):
		middlewares.RecordResolution("already_resolved")
		c.JSON(http.StatusConflict, gin.H{"error": "report is already resolved"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
	default:
		middlewares.RecordResolution("error")
		log.WithError(err).Error("resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve report"})
	}
}

// UpdateStatus moves a report one stage through the open lifecycle.
// Resolving goes through ResolveReport, never through here.
func (rc *ResolutionController) UpdateStatus(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes,omitempty" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := rc.coordinator.UpdateStatus(
		c.Request.Context(), reportID, models.ReportStatus(input.Status), adminID.Hex(), input.Notes)
	if err != nil {
		var invalid *resolution.InvalidTransitionError
		switch {
		case errors.Is(err, resolution.ErrEvidenceRequired):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "resolving requires evidence, use the resolve endpoint",
			})
		case errors.As(err, &invalid):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": invalid.Error(),
				"from":  invalid.From,
				"to":    invalid.To,
			})
		case errors.Is(err, store.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "report is already resolved"})
		case errors.Is(err, store.ErrStatusConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "report status changed, reload and retry"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetResolution returns the audit record of a resolved report.
func (rc *ResolutionController) GetResolution(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := rc.store.GetReport(c.Request.Context(), reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		}
		return
	}

	if report.Resolution == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report is not resolved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reportId":   report.ID.Hex(),
		"status":     report.Status,
		"resolution": report.Resolution,
	})
}

func formFileBytes(c *gin.Context, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	var file multipart.File
	if file, err = fileHeader.Open(); err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxUploadBytes))
}
