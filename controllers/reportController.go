package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/broadcast"
	"crowdcare-be/duplicate"
	"crowdcare-be/geomath"
	"crowdcare-be/middlewares"
	"crowdcare-be/models"
	"crowdcare-be/store"
)

var log = logrus.WithField("prefix", "controller")

// ReportController serves the citizen-facing report endpoints.
type ReportController struct {
	store  store.ReportStore
	finder *duplicate.Finder
	hub    *broadcast.Hub
}

func NewReportController(reportStore store.ReportStore, finder *duplicate.Finder, hub *broadcast.Hub) *ReportController {
	return &ReportController{store: reportStore, finder: finder, hub: hub}
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return primitive.NilObjectID, false
	}
	objID, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return objID, true
}

func reportIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// CreateReport handles submission of a new report. A submission within the
// duplicate radius of an existing open report in the same category is
// rejected with 409 and a pointer to that report.
func (rc *ReportController) CreateReport(c *gin.Context) {
	reporterID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Title            string   `json:"title" binding:"required,max=200"`
		Description      string   `json:"description" binding:"required,max=1000"`
		Category         string   `json:"category" binding:"required"`
		Latitude         *float64 `json:"latitude" binding:"required"`
		Longitude        *float64 `json:"longitude" binding:"required"`
		Address          string   `json:"address,omitempty" binding:"max=200"`
		ImageURL         *string  `json:"imageUrl,omitempty"`
		PreviousReportID *string  `json:"previousReportId,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidCategory(input.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	location := geomath.Coordinate{Latitude: *input.Latitude, Longitude: *input.Longitude}
	if !location.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
		return
	}

	ctx := c.Request.Context()

	var previousID *primitive.ObjectID
	if input.PreviousReportID != nil {
		prev, err := primitive.ObjectIDFromHex(*input.PreviousReportID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid previous report ID"})
			return
		}
		prevReport, err := rc.store.GetReport(ctx, prev)
		if err != nil || !prevReport.IsDeleted && prevReport.Status != models.Resolved {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Previous report must be a deleted or resolved report"})
			return
		}
		previousID = &prev
	}

	candidates, err := rc.store.ListOpenReports(ctx, input.Category)
	if err != nil {
		log.WithError(err).Error("failed to load duplicate candidates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
		return
	}

	match, err := rc.finder.FindDuplicate(ctx, duplicate.Submission{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    location,
	}, candidates)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	middlewares.RecordDuplicateCheck(match != nil)
	if match != nil {
		dup := &duplicate.DuplicateFoundError{Match: *match}
		c.JSON(http.StatusConflict, gin.H{
			"error":            dup.Error(),
			"existingReportId": match.ExistingID.Hex(),
			"distanceMeters":   match.DistanceMeters,
			"similarityScore":  match.Score,
		})
		return
	}

	now := time.Now().UTC()
	category := models.ReportCategory(input.Category)
	report := &models.Report{
		Title:              input.Title,
		Description:        input.Description,
		Category:           category,
		Location:           location,
		Address:            input.Address,
		ImageURL:           input.ImageURL,
		Status:             models.Reported,
		ReporterID:         reporterID,
		AssignedDepartment: models.DepartmentForCategory(category).Name,
		PreviousReportID:   previousID,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.Reported,
			ChangedBy: reporterID.Hex(),
			ChangedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := rc.store.CreateReport(ctx, report); err != nil {
		log.WithError(err).Error("failed to insert report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// GetAllReports retrieves reports with filtering, pagination and upvote
// counts.
func (rc *ReportController) GetAllReports(c *gin.Context) {
	ctx := c.Request.Context()

	filter := store.ReportFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Oldest:   c.DefaultQuery("sort", "newest") == "oldest",
	}
	filter.Page, filter.Limit = paginationParams(c)

	reports, totalCount, err := rc.store.ListReports(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}

	enriched := rc.withUpvotes(c, reports)

	totalPages := int((totalCount + int64(filter.Limit) - 1) / int64(filter.Limit))
	c.JSON(http.StatusOK, gin.H{
		"reports":      enriched,
		"totalReports": totalCount,
		"totalPages":   totalPages,
		"currentPage":  filter.Page,
	})
}

// GetReport retrieves one report with its upvote count, status history and
// resolution record when present.
func (rc *ReportController) GetReport(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	report, err := rc.store.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		}
		return
	}

	upvotes, err := rc.store.CountUpvotes(ctx, reportID)
	if err != nil {
		upvotes = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"upvotes": upvotes,
	})
}

// GetMyReports retrieves all reports submitted by the authenticated user,
// deleted ones included so the citizen can re-report from them.
func (rc *ReportController) GetMyReports(c *gin.Context) {
	reporterID, ok := currentUserID(c)
	if !ok {
		return
	}

	reports, err := rc.store.ListReportsByReporter(c.Request.Context(), reporterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}

	c.JSON(http.StatusOK, rc.withUpvotes(c, reports))
}

// DeleteReport lets the reporting citizen retract an open report. The
// record stays behind as a tombstone for re-reporting.
func (rc *ReportController) DeleteReport(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	reporterID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Reason string `json:"reason,omitempty" binding:"max=500"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := rc.store.SoftDeleteReport(c.Request.Context(), reportID, reporterID, input.Reason)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully"})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAlreadyDeleted):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
	case errors.Is(err, store.ErrNotReporter):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to delete this report"})
	case errors.Is(err, store.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "Resolved reports cannot be deleted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
	}
}

// HandleUpvote toggles the user's upvote on a report and publishes the new
// total to live subscribers.
func (rc *ReportController) HandleUpvote(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	added, total, err := rc.store.ToggleUpvote(c.Request.Context(), reportID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle upvote"})
		}
		return
	}

	action := "removed"
	if added {
		action = "added"
	}
	rc.hub.Publish(broadcast.NewUpvoteUpdateEvent(reportID.Hex(), total, userID.Hex(), action))

	c.JSON(http.StatusOK, gin.H{
		"upvoted": added,
		"upvotes": total,
	})
}

// AddComment appends a comment to a report and publishes it to live
// subscribers.
func (rc *ReportController) AddComment(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Body string `json:"body" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment := &models.Comment{
		Report:    reportID,
		User:      userID,
		Body:      input.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := rc.store.AddComment(c.Request.Context(), comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		}
		return
	}

	rc.hub.Publish(broadcast.NewCommentEvent(
		reportID.Hex(), comment.ID.Hex(), userID.Hex(), comment.UserName, comment.Body, comment.CreatedAt))

	c.JSON(http.StatusCreated, comment)
}

// ListComments retrieves a report's comments, oldest first.
func (rc *ReportController) ListComments(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	comments, err := rc.store.ListComments(c.Request.Context(), reportID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	c.JSON(http.StatusOK, comments)
}

// GetStatusTimeline returns the full transition history for a report.
func (rc *ReportController) GetStatusTimeline(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"reportId": report.ID.Hex(),
		"status":   report.Status,
		"timeline": report.StatusHistory,
	})
}

// GetAnalytics returns aggregate statistics for the dashboard.
func (rc *ReportController) GetAnalytics(c *gin.Context) {
	summary, err := rc.store.Analytics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func paginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

// withUpvotes decorates reports with their upvote count and whether the
// current user upvoted.
func (rc *ReportController) withUpvotes(c *gin.Context, reports []models.Report) []gin.H {
	ctx := c.Request.Context()

	var currentID *primitive.ObjectID
	if userIDStr, exists := c.Get("user_id"); exists {
		if objID, err := primitive.ObjectIDFromHex(userIDStr.(string)); err == nil {
			currentID = &objID
		}
	}

	out := make([]gin.H, 0, len(reports))
	for i := range reports {
		report := &reports[i]
		upvotes, err := rc.store.CountUpvotes(ctx, report.ID)
		if err != nil {
			upvotes = 0
		}

		userHasUpvoted := false
		if currentID != nil {
			userHasUpvoted, _ = rc.store.HasUpvoted(ctx, report.ID, *currentID)
		}

		out = append(out, gin.H{
			"report":         report,
			"upvotes":        upvotes,
			"userHasUpvoted": userHasUpvoted,
		})
	}
	return out
}
