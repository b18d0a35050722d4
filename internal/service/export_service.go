package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/pkg/export"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type attendanceViewer interface {
	List(ctx context.Context, teacherID string, req AttendanceListRequest) (*AttendanceView, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

var reportHeaders = []string{"Student ID", "Name", "Status", "Date", "Time", "Subject"}

// ReportFile is a rendered attendance report ready to be sent as an attachment.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the attendance display list as CSV or PDF.
type ExportService struct {
	attendance attendanceViewer
	csv        csvRenderer
	pdf        pdfRenderer
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(attendance attendanceViewer, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{attendance: attendance, csv: csv, pdf: pdf, now: time.Now, logger: logger}
}

// AttendanceReport renders the filtered attendance list.
func (s *ExportService) AttendanceReport(ctx context.Context, teacherID string, req AttendanceListRequest, rawFormat string) (*ReportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	view, err := s.attendance.List(ctx, teacherID, req)
	if err != nil {
		return nil, err
	}
	dataset := attendanceDataset(view)

	var payload []byte
	switch format {
	case export.FormatPDF:
		title := "Attendance"
		if view.DateFrom != "" {
			title = fmt.Sprintf("Attendance %s to %s", view.DateFrom, view.DateTo)
		}
		payload, err = s.pdf.Render(dataset, title)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Debug("attendance report rendered", zap.String("teacher_id", teacherID), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ReportFile{
		Filename:    fmt.Sprintf("attendance-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

func attendanceDataset(view *AttendanceView) export.Dataset {
	rows := make([]map[string]string, 0, len(view.Students))
	for _, row := range view.Students {
		record := map[string]string{
			"Student ID": row.Student.ID,
			"Name":       row.FormattedName,
			"Status":     string(row.Status),
		}
		if row.CheckIn != nil {
			record["Date"] = row.CheckIn.Date
			record["Time"] = row.CheckIn.Time
			record["Subject"] = row.CheckIn.SubjectID
		}
		rows = append(rows, record)
	}
	stats := view.Statistics
	return export.Dataset{
		Headers: reportHeaders,
		Rows:    rows,
		Notes: []string{
			fmt.Sprintf("Present %d, Late %d, Excused %d, Absent %d of %d", stats.Present, stats.Late, stats.Excused, stats.Absent, stats.Total),
			fmt.Sprintf("Attendance rate %d%%", stats.AttendanceRate),
		},
	}
}
