package service

import (
	"fmt"

	"github.com/kleurijkwonen/inspections/model"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Submissions"

var exportHeader = []interface{}{
	"ID", "Date", "Type", "Street", "Apartment", "City",
	"Structural Defects", "Decay Magnitude", "Defect Intensity", "Score",
	"Description", "Submitted By", "Latitude", "Longitude", "Photo URL",
}

// ExportSubmissions writes submissions to an XLSX workbook.
func ExportSubmissions(submissions []model.Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, s := range submissions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			s.ID, s.Date.Format("2006-01-02 15:04"), s.Type, s.StreetName, s.ApartmentNumber, s.City,
			s.StructuralDefects, s.DecayMagnitude, s.DefectIntensity, s.FinalScore(),
			s.Description, s.SubmittedBy, optionalFloat(s.Latitude), optionalFloat(s.Longitude), s.PhotoURL,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
