package render

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/abelzeko/stream-report/internal/entities"
)

// Workbook file and sheet names
const (
	OverviewWorkbook  = "overview.xlsx"
	OverviewSheet     = "Overview"
	MeasurementsSheet = "Measurements"
)

// overview header row; parameter rows follow
const workbookHeaderRow = 4

// RenderWorkbook writes the overview grid and the measurements behind it to an xlsx file
func (r *Renderer) RenderWorkbook(grid entities.MonthlyGrid, records []entities.Measurement) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OverviewSheet); err != nil {
		return "", fmt.Errorf("failed to name overview sheet: %w", err)
	}
	if err := r.writeOverviewSheet(f, grid); err != nil {
		return "", err
	}
	if err := writeMeasurementsSheet(f, records); err != nil {
		return "", err
	}

	path, err := r.writeArtifact(OverviewWorkbook, func(w io.Writer) error {
		return f.Write(w)
	})
	if err != nil {
		return "", err
	}
	log.Printf("Rendered workbook %s", path)
	return path, nil
}

func (r *Renderer) writeOverviewSheet(f *excelize.File, grid entities.MonthlyGrid) error {
	styles, err := newStatusStyles(f)
	if err != nil {
		return err
	}

	set := func(col, row int, value interface{}, style int) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(OverviewSheet, cell, value); err != nil {
			return err
		}
		if style != 0 {
			return f.SetCellStyle(OverviewSheet, cell, cell, style)
		}
		return nil
	}

	if err := set(1, 1, r.OverviewTitle(), styles.title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	if err := set(1, 2, r.labels.Location(), 0); err != nil {
		return fmt.Errorf("failed to write location: %w", err)
	}
	if err := f.MergeCell(OverviewSheet, "A1", "M1"); err != nil {
		return fmt.Errorf("failed to merge title: %w", err)
	}
	if err := f.MergeCell(OverviewSheet, "A2", "M2"); err != nil {
		return fmt.Errorf("failed to merge location: %w", err)
	}

	if err := set(1, workbookHeaderRow, "Parameter", styles.header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for m := 1; m <= 12; m++ {
		if err := set(m+1, workbookHeaderRow, time.Month(m).String()[:3], styles.header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range grid.Rows {
		rowNum := workbookHeaderRow + 1 + i
		if err := set(1, rowNum, string(row.Parameter), styles.label); err != nil {
			return fmt.Errorf("failed to write %s: %w", row.Parameter, err)
		}
		for _, cell := range row.Cells {
			var value interface{} = ""
			if cell.HasValue {
				value = cell.Value
			}
			if err := set(int(cell.Month)+1, rowNum, value, styles.forStatus(cell.Status)); err != nil {
				return fmt.Errorf("failed to write %s %s: %w", row.Parameter, cell.Month, err)
			}
		}
	}

	if err := f.SetColWidth(OverviewSheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(OverviewSheet, "B", "M", 10)
}

func writeMeasurementsSheet(f *excelize.File, records []entities.Measurement) error {
	if _, err := f.NewSheet(MeasurementsSheet); err != nil {
		return fmt.Errorf("failed to add measurements sheet: %w", err)
	}

	header := []interface{}{
		"SIte_ID", "Site_Name", "Event_Date", "Air_Temp", "Water_Temp", "PH",
		"DissolvedOxygen", "DO_Saturation", "Conductivity", "ThreeMEcoli",
	}
	if err := f.SetSheetRow(MeasurementsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write measurements header: %w", err)
	}

	for i, m := range records {
		date := m.DateToken
		if m.DateValid {
			date = m.EventDate.Format("2006-01-02")
		}
		var ecoli interface{} = ""
		if m.Ecoli != nil {
			ecoli = *m.Ecoli
		}
		row := []interface{}{
			m.SiteID, m.SiteName, date, m.AirTemp, m.WaterTemp, m.PH,
			m.DO, m.DOSaturation, m.Conductivity, ecoli,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MeasurementsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write measurement row %d: %w", i+1, err)
		}
	}
	return nil
}

type statusStyles struct {
	title, header, label, good, bad, empty int
}

func (s statusStyles) forStatus(status entities.Status) int {
	switch status {
	case entities.Good:
		return s.good
	case entities.Bad:
		return s.bad
	default:
		return s.empty
	}
}

func newStatusStyles(f *excelize.File) (statusStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	fill := func(hex string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{hex}, Pattern: 1}
	}

	var s statusStyles
	var err error
	specs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: center}},
		{&s.header, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill("DDDDDD"), Border: border, Alignment: center}},
		{&s.label, &excelize.Style{Border: border}},
		{&s.good, &excelize.Style{Fill: fill("008000"), Border: border, Alignment: center}},
		{&s.bad, &excelize.Style{Fill: fill("FF0000"), Border: border, Alignment: center}},
		{&s.empty, &excelize.Style{Fill: fill("FFFFFF"), Border: border, Alignment: center}},
	}
	for _, def := range specs {
		if *def.dst, err = f.NewStyle(def.style); err != nil {
			return s, fmt.Errorf("failed to create style: %w", err)
		}
	}
	return s, nil
}
