package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crowdcare-be/geomath"
	"crowdcare-be/models"
	"crowdcare-be/store"
)

func newDepartmentRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memStore := store.NewMemoryStore()
	dc := NewDepartmentController(memStore)

	r := gin.New()
	dept := r.Group("/api/admin/departments")
	{
		dept.GET("", dc.ListDepartments)
		dept.GET("/:name/reports", dc.GetDepartmentReports)
		dept.GET("/:name/stats", dc.GetDepartmentStats)
	}
	return r, memStore
}

func seedCategoryReport(t *testing.T, s *store.MemoryStore, category models.ReportCategory, status models.ReportStatus) {
	t.Helper()
	report := &models.Report{
		Title:              "Streetlight out near school",
		Description:        "dark stretch after sunset",
		Category:           category,
		Status:             status,
		Location:           geomath.Coordinate{Latitude: 22.7512, Longitude: 75.8754},
		ReporterID:         primitive.NewObjectID(),
		AssignedDepartment: models.DepartmentForCategory(category).Name,
	}
	require.NoError(t, s.CreateReport(context.Background(), report))
}

func TestDepartmentForCategoryMapping(t *testing.T) {
	assert.Equal(t, "Roads", models.DepartmentForCategory(models.Road).Name)
	assert.Equal(t, "Electricity", models.DepartmentForCategory(models.Electricity).Name)
	assert.Equal(t, "General", models.DepartmentForCategory(models.Other).Name)
	assert.Equal(t, "General", models.DepartmentForCategory(models.ReportCategory("Unmapped")).Name)
}

func TestListDepartments(t *testing.T) {
	r, _ := newDepartmentRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/departments", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var depts []models.Department
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &depts))
	assert.Len(t, depts, 5)
	assert.Equal(t, "Roads", depts[0].Name)
}

func TestDepartmentReportsAreCategoryScoped(t *testing.T) {
	r, memStore := newDepartmentRouter(t)

	seedCategoryReport(t, memStore, models.Electricity, models.Reported)
	seedCategoryReport(t, memStore, models.Electricity, models.InProgress)
	seedCategoryReport(t, memStore, models.Water, models.Reported)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/departments/Electricity/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Department string          `json:"department"`
		Reports    []models.Report `json:"reports"`
		TotalCount int64           `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Electricity", payload.Department)
	assert.Equal(t, int64(2), payload.TotalCount)
	for _, report := range payload.Reports {
		assert.Equal(t, models.Electricity, report.Category)
	}

	// The inverted view returns everything outside the department.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/departments/Electricity/reports?others=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, int64(1), payload.TotalCount)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/departments/Archives/reports", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDepartmentStats(t *testing.T) {
	r, memStore := newDepartmentRouter(t)

	seedCategoryReport(t, memStore, models.Road, models.Reported)
	seedCategoryReport(t, memStore, models.Road, models.Reported)
	seedCategoryReport(t, memStore, models.Road, models.Resolved)
	seedCategoryReport(t, memStore, models.Sanitation, models.Reported)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/departments/Roads/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Department      string           `json:"department"`
		TotalReports    int64            `json:"totalReports"`
		StatusBreakdown map[string]int64 `json:"statusBreakdown"`
		Resolved        int64            `json:"resolved"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Roads", payload.Department)
	assert.Equal(t, int64(3), payload.TotalReports)
	assert.Equal(t, int64(2), payload.StatusBreakdown["reported"])
	assert.Equal(t, int64(1), payload.Resolved)
}
