package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/models"
	"github.com/noah-isme/gymkhana-api/pkg/export"
	"github.com/noah-isme/gymkhana-api/pkg/storage"
)

type exportCalendarReader interface {
	GetByID(ctx context.Context, id string) (*models.Calendar, error)
}

type exportLogReader interface {
	List(ctx context.Context, filter models.ApprovalLogFilter) ([]models.ApprovalLog, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	Sweep(olderThan time.Duration) (int, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	calendars exportCalendarReader
	logs      exportLogReader
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.DownloadSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(calendars exportCalendarReader, logs exportLogReader, storage fileStorage, signer *storage.DownloadSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		calendars: calendars,
		logs:      logs,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	table, err := s.buildTable(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(table)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyToken validates a download token and returns its claims.
func (s *ExportService) VerifyToken(token string, allowExpired bool) (storage.DownloadClaims, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL
// when ttl <= 0) and reports how many were swept.
func (s *ExportService) Cleanup(ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.Sweep(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	calendarPart := sanitizeFilename(job.Params.CalendarID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), calendarPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildTable(ctx context.Context, job *models.ReportJob) (export.Table, error) {
	switch job.Type {
	case models.ReportTypeApprovalHistory:
		return s.buildApprovalHistoryTable(ctx, job.Params)
	case models.ReportTypeCalendarSummary:
		return s.buildCalendarSummaryTable(ctx, job.Params)
	default:
		return export.Table{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildApprovalHistoryTable(ctx context.Context, params models.ReportJobParams) (export.Table, error) {
	calendar, err := s.calendars.GetByID(ctx, params.CalendarID)
	if err != nil {
		return export.Table{}, err
	}
	entries, err := s.logs.List(ctx, models.ApprovalLogFilter{
		EntityKind: models.EntityKindCalendar,
		EntityID:   calendar.ID,
		Limit:      500,
	})
	if err != nil {
		return export.Table{}, err
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		comments := ""
		if entry.Comments != nil {
			comments = *entry.Comments
		}
		rows = append(rows, []string{
			entry.Stage,
			string(entry.Action),
			entry.PerformedBy,
			comments,
			entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Table{
		Title:       fmt.Sprintf("Approval History %s", calendar.AcademicYear),
		GeneratedAt: time.Now().UTC(),
		Columns:     []string{"Stage", "Action", "Performed By", "Comments", "At"},
		Rows:        rows,
	}, nil
}

func (s *ExportService) buildCalendarSummaryTable(ctx context.Context, params models.ReportJobParams) (export.Table, error) {
	calendar, err := s.calendars.GetByID(ctx, params.CalendarID)
	if err != nil {
		return export.Table{}, err
	}
	rows := make([][]string, 0, len(calendar.Events))
	for _, event := range calendar.Events {
		rows = append(rows, []string{
			event.Title,
			event.Category,
			event.StartDate.UTC().Format("2006-01-02"),
			event.EndDate.UTC().Format("2006-01-02"),
			fmt.Sprintf("%.2f", event.EstimatedBudget),
		})
	}
	return export.Table{
		Title:       fmt.Sprintf("Calendar Summary %s", calendar.AcademicYear),
		GeneratedAt: time.Now().UTC(),
		Columns:     []string{"Title", "Category", "Start Date", "End Date", "Estimated Budget"},
		Rows:        rows,
	}, nil
}
