package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"path"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/kleurijkwonen/inspections/imaging"
	"github.com/kleurijkwonen/inspections/model"
)

// ReportService renders NEN2767 inspection reports and stores them as
// database blobs.
type ReportService struct {
	store       *Store
	submissions *SubmissionService
}

func NewReportService(store *Store, submissions *SubmissionService) *ReportService {
	return &ReportService{store: store, submissions: submissions}
}

// Generate renders and stores a report for the submission.
func (s *ReportService) Generate(ctx context.Context, submissionID string) (*model.Report, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	// A missing photo only drops the image from the report.
	photo, err := s.submissions.Photo(ctx, sub)
	if err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("failed to load submission photo for report", "submission_id", sub.ID, "error", err)
	}

	content, err := RenderReport(sub, photo)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Filename:     fmt.Sprintf("NEN2767-Report-%s.pdf", uuid.New().String()),
		Content:      content,
		SubmissionID: sub.ID,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Get resolves ref as a report filename when it has an extension and as a
// report id otherwise.
func (s *ReportService) Get(ctx context.Context, ref string) (*model.Report, error) {
	if ext := path.Ext(ref); ext != "" {
		if !strings.EqualFold(ext, ".pdf") {
			return nil, ErrInvalidFileType
		}
		return s.store.GetReportByFilename(ctx, ref)
	}
	return s.store.GetReport(ctx, ref)
}

func (s *ReportService) List(ctx context.Context, submissionID string) ([]model.Report, error) {
	return s.store.ListReports(ctx, submissionID)
}

// RenderReport lays out the A4 report. photo may be nil.
func RenderReport(sub *model.Submission, photo []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("NEN2767 Inspection Report", true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading := func(text string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
	}
	line := func(text string) {
		pdf.CellFormat(0, 6, tr(text), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "NEN2767 Inspection Report", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	heading("Property Information")
	line(fmt.Sprintf("Address: %s %s", sub.StreetName, sub.ApartmentNumber))
	line("City: " + sub.City)
	line("Inspection Date: " + sub.Date.Format("02-01-2006"))
	if sub.SubmittedBy != "" {
		line("Submitted By: " + sub.SubmittedBy)
	}
	pdf.Ln(4)

	heading("Condition Assessment")
	line(fmt.Sprintf("Structural Defects: %d/%d", sub.StructuralDefects, model.RatingMax))
	line(fmt.Sprintf("Decay Magnitude: %d/%d", sub.DecayMagnitude, model.RatingMax))
	line(fmt.Sprintf("Defect Intensity: %d/%d", sub.DefectIntensity, model.RatingMax))
	line(fmt.Sprintf("Condition Score: %d/%d", sub.FinalScore(), model.RatingMax))
	pdf.Ln(4)

	heading("Description")
	description := sub.Description
	if description == "" {
		description = "No description provided"
	}
	pdf.MultiCell(0, 6, tr(description), "", "L", false)
	pdf.Ln(4)

	if sub.Latitude != nil && sub.Longitude != nil {
		heading("Location Data")
		line(fmt.Sprintf("Latitude: %.6f", *sub.Latitude))
		line(fmt.Sprintf("Longitude: %.6f", *sub.Longitude))
		pdf.Ln(4)
	}

	if len(photo) > 0 {
		if err := embedPhoto(pdf, photo); err != nil {
			slog.Warn("skipping report photo", "submission_id", sub.ID, "error", err)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return buf.Bytes(), nil
}

// embedPhoto re-encodes the photo as PNG so every accepted upload format
// can be placed.
func embedPhoto(pdf *fpdf.Fpdf, photo []byte) error {
	img, err := imaging.DecodeBytes(photo)
	if err != nil {
		return err
	}
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return fmt.Errorf("failed to encode photo: %w", err)
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Photo", "", 1, "L", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptionsReader("photo", opts, &encoded)
	if pdf.Ok() && info != nil {
		width := 120.0
		height := width * info.Height() / info.Width()
		if height > 150 {
			height = 150
			width = height * info.Width() / info.Height()
		}
		pdf.ImageOptions("photo", pdf.GetX(), pdf.GetY(), width, height, true, opts, 0, "")
	}
	return nil
}
