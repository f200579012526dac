package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/models"
	"github.com/noah-isme/gymkhana-api/pkg/export"
	"github.com/noah-isme/gymkhana-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.ExportDir, *calendarReaderStub) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewExportDir(dir)
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	calendars := &calendarReaderStub{calendars: map[string]*models.Calendar{
		"cal-1": {
			ID:           "cal-1",
			AcademicYear: "2025-26",
			Status:       models.StatusApproved,
			Events: models.CalendarEvents{
				{Title: "Tech Fest", Category: "TECHNICAL", StartDate: day("2025-10-01"), EndDate: day("2025-10-03"), EstimatedBudget: 50000},
			},
		},
	}}
	comment := "looks good"
	logs := &approvalLogStub{entries: []*models.ApprovalLog{
		{
			EntityKind:  models.EntityKindCalendar,
			EntityID:    "cal-1",
			Stage:       "STUDENT_AFFAIRS",
			Action:      models.ActionApproved,
			PerformedBy: "sa-1",
			Comments:    &comment,
			CreatedAt:   day("2025-06-15"),
		},
	}}
	svc := NewExportService(calendars, logs, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store, calendars
}

func TestExportServiceGenerateApprovalHistoryCSV(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeApprovalHistory,
		Params:    models.ReportJobParams{CalendarID: "cal-1", Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/export/")

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateCalendarSummaryPDF(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeCalendarSummary,
		Params:    models.ReportJobParams{CalendarID: "cal-1", Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceUnknownCalendar(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeCalendarSummary,
		Params: models.ReportJobParams{CalendarID: "missing", Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
