package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdcare-be/models"
	"crowdcare-be/store"
)

// DepartmentController serves the admin department views. Reports route to
// departments through the static category mapping, so a department listing
// is a category-scoped report listing.
type DepartmentController struct {
	store store.ReportStore
}

func NewDepartmentController(reportStore store.ReportStore) *DepartmentController {
	return &DepartmentController{store: reportStore}
}

// ListDepartments returns every department with the categories it owns.
func (dc *DepartmentController) ListDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, models.Departments())
}

func departmentParam(c *gin.Context) (models.Department, bool) {
	dept, ok := models.DepartmentByName(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown department"})
		return models.Department{}, false
	}
	return dept, true
}

func categoryNames(categories []models.ReportCategory) []string {
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = string(cat)
	}
	return names
}

// otherCategories returns every known category outside the department, for
// the cross-department view.
func otherCategories(dept models.Department) []string {
	owned := categoryNames(dept.Categories)
	var names []string
	for _, d := range models.Departments() {
		for _, cat := range d.Categories {
			if !containsCategory(owned, string(cat)) {
				names = append(names, string(cat))
			}
		}
	}
	return names
}

func containsCategory(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// GetDepartmentReports lists the reports a department is responsible for,
// with the usual status filter and pagination. ?others=true inverts the
// scope to every other department's categories.
func (dc *DepartmentController) GetDepartmentReports(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}

	categories := categoryNames(dept.Categories)
	if c.Query("others") == "true" {
		categories = otherCategories(dept)
	}

	page, limit := paginationParams(c)
	filter := store.ReportFilter{
		Categories: categories,
		Status:     c.Query("status"),
		Page:       page,
		Limit:      limit,
	}

	reports, total, err := dc.store.ListReports(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).WithField("department", dept.Name).Error("failed to list department reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch department reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"department": dept.Name,
		"reports":    reports,
		"totalCount": total,
	})
}

// GetDepartmentStats returns the status breakdown for a department's
// categories.
func (dc *DepartmentController) GetDepartmentStats(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}

	counts, err := dc.store.StatusCounts(c.Request.Context(), categoryNames(dept.Categories))
	if err != nil {
		log.WithError(err).WithField("department", dept.Name).Error("failed to load department stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch department stats"})
		return
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	c.JSON(http.StatusOK, gin.H{
		"department":      dept.Name,
		"totalReports":    total,
		"statusBreakdown": counts,
		"reported":        counts[string(models.Reported)],
		"inProgress":      counts[string(models.InProgress)],
		"resolved":        counts[string(models.Resolved)],
	})
}
