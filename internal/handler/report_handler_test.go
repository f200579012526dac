package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymkhana-api/internal/dto"
	"github.com/noah-isme/gymkhana-api/internal/models"
	"github.com/noah-isme/gymkhana-api/internal/service"
	appErrors "github.com/noah-isme/gymkhana-api/pkg/errors"
)

type reportServiceMock struct {
	job      *dto.ReportJobResponse
	status   *dto.ReportStatusResponse
	download *service.ReportDownload
	err      error
}

func (m *reportServiceMock) CreateJob(ctx context.Context, req dto.ReportRequest, actor models.Actor) (*dto.ReportJobResponse, error) {
	return m.job, m.err
}

func (m *reportServiceMock) GetStatus(ctx context.Context, id string, actor models.Actor) (*dto.ReportStatusResponse, error) {
	return m.status, m.err
}

func (m *reportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error) {
	return m.download, m.err
}

func TestReportHandlerGenerate(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{job: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued}})
	c, w := testContext(t, http.MethodPost, "/reports/generate", dto.ReportRequest{
		Type:       models.ReportTypeApprovalHistory,
		CalendarID: "cal-1",
		Format:     models.ReportFormatCSV,
	})
	setActor(c, models.Actor{ID: "sa-1", Role: models.RoleStudentAffairs})

	handler.Generate(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "job-1")
}

func TestReportHandlerGenerateMissingActor(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{})
	c, w := testContext(t, http.MethodPost, "/reports/generate", dto.ReportRequest{CalendarID: "cal-1"})

	handler.Generate(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerStatusForbidden(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{err: appErrors.ErrForbidden})
	c, w := testContext(t, http.MethodGet, "/reports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	setActor(c, models.Actor{ID: "gs-1", Role: models.RoleGymkhana, SubRole: models.SubRoleGS})

	handler.Status(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("Stage,Action\nPRESIDENT,SUBMITTED\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	handler := NewReportHandler(&reportServiceMock{download: &service.ReportDownload{
		File:      file,
		Filename:  "approval_history_cal-1.csv",
		Format:    models.ReportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}})
	c, w := testContext(t, http.MethodGet, "/export/tok-1", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok-1"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "approval_history_cal-1.csv")
	assert.Contains(t, w.Body.String(), "PRESIDENT,SUBMITTED")
}

func TestReportHandlerDownloadMissingToken(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{})
	c, w := testContext(t, http.MethodGet, "/export/", nil)

	handler.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
