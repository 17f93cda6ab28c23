package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiclens/geocode"
	"civiclens/middleware"
	"civiclens/models"
	"civiclens/reports"
)

type stubGeocoder struct {
	address string
}

func (g *stubGeocoder) ReverseGeocode(ctx context.Context, latitude, longitude float64) string {
	if g.address != "" {
		return g.address
	}
	return geocode.CoordinateFallback(latitude, longitude)
}

func newReportHandler() (*ReportHandler, *reports.Service) {
	svc := reports.NewService(reports.NewMemoryStore())
	return NewReportHandler(svc, &stubGeocoder{address: "MG Road, Bengaluru"}), svc
}

func asUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserContextKey, user)
	return r.WithContext(ctx)
}

var (
	handlerAdmin   = &models.User{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin}
	handlerCitizen = &models.User{UserID: "U1", Username: "asha", Role: models.RoleUser}
)

func createBody() string {
	return `{
		"imageUrl": "https://storage.example.com/img.jpg",
		"title": "Pothole on MG Road",
		"aiDescription": "A deep pothole.",
		"latitude": 12.9716,
		"longitude": 77.5946
	}`
}

func TestCreateReportEndpoint(t *testing.T) {
	handler, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(createBody()))
	req = asUser(req, handlerCitizen)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Report models.Report `json:"report"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "U1", resp.Report.AuthorID)
	assert.Equal(t, models.StatusPending, resp.Report.Status)
	assert.Equal(t, "MG Road, Bengaluru", resp.Report.Address)
}

func TestCreateReportAnonymous(t *testing.T) {
	handler, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(createBody()))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Report models.Report `json:"report"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Report.AuthorID)
}

func TestCreateReportMissingFields(t *testing.T) {
	handler, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReportMethodNotAllowed(t *testing.T) {
	handler, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/reports/create", nil)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListReportsRequiresAdmin(t *testing.T) {
	handler, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req = asUser(req, handlerCitizen)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListReportsInvalidDateFilter(t *testing.T) {
	handler, _ := newReportHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/reports?start_date=yesterday", nil)
	req = asUser(req, handlerAdmin)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	handler, svc := newReportHandler()
	report, err := svc.Create(context.Background(), reports.CreateInput{
		AuthorID:      "U1",
		ImageURL:      "https://storage.example.com/img.jpg",
		AIDescription: "A deep pothole.",
		Latitude:      12.9716,
		Longitude:     77.5946,
		Address:       "MG Road",
	})
	require.NoError(t, err)

	body := `{"id": "` + report.ID + `", "status": "in-progress"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports/status", strings.NewReader(body))
	req = asUser(req, handlerAdmin)
	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Report models.Report `json:"report"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.StatusInProgress, resp.Report.Status)
}

func TestUpdateStatusInvalidValue(t *testing.T) {
	handler, svc := newReportHandler()
	report, err := svc.Create(context.Background(), reports.CreateInput{
		ImageURL:      "https://storage.example.com/img.jpg",
		AIDescription: "A deep pothole.",
		Latitude:      1,
		Longitude:     2,
		Address:       "Somewhere",
	})
	require.NoError(t, err)

	body := `{"id": "` + report.ID + `", "status": "archived"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports/status", strings.NewReader(body))
	req = asUser(req, handlerAdmin)
	rec := httptest.NewRecorder()
	handler.UpdateStatus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteReportEndpoint(t *testing.T) {
	handler, svc := newReportHandler()
	report, err := svc.Create(context.Background(), reports.CreateInput{
		AuthorID:      "U1",
		ImageURL:      "https://storage.example.com/img.jpg",
		AIDescription: "A deep pothole.",
		Latitude:      1,
		Longitude:     2,
		Address:       "Somewhere",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/reports/delete", strings.NewReader(`{"id": "`+report.ID+`"}`))
	req = asUser(req, handlerAdmin)
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/reports/get?id="+report.ID, nil)
	getReq = asUser(getReq, handlerAdmin)
	getRec := httptest.NewRecorder()
	handler.Get(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestGetReportAccessDenied(t *testing.T) {
	handler, svc := newReportHandler()
	report, err := svc.Create(context.Background(), reports.CreateInput{
		AuthorID:      "U2",
		ImageURL:      "https://storage.example.com/img.jpg",
		AIDescription: "A deep pothole.",
		Latitude:      1,
		Longitude:     2,
		Address:       "Somewhere",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/get?id="+report.ID, nil)
	req = asUser(req, handlerCitizen)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	handler, svc := newReportHandler()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), reports.CreateInput{
			ImageURL:      "https://storage.example.com/img.jpg",
			AIDescription: "A deep pothole.",
			Latitude:      1,
			Longitude:     2,
			Address:       "Somewhere",
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	req = asUser(req, handlerAdmin)
	rec := httptest.NewRecorder()
	handler.Analytics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var analytics models.Analytics
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&analytics))
	assert.Equal(t, 3, analytics.Total)
	assert.Equal(t, 3, analytics.Pending)
	assert.Equal(t, analytics.Pending+analytics.InProgress+analytics.Resolved, analytics.Total)
}

func TestLocateEndpoint(t *testing.T) {
	handler := NewReportHandler(reports.NewService(reports.NewMemoryStore()), &stubGeocoder{})

	req := httptest.NewRequest(http.MethodPost, "/api/locate", strings.NewReader(`{"latitude": 20.5937, "longitude": 78.9629}`))
	rec := httptest.NewRecorder()
	handler.Locate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Location: 20.593700, 78.962900", resp["address"])
}
