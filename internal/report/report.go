// Package report renders analysis results for export: a labeled CSV of the
// clustered observations and a printable PDF summary.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/crimelens/crimelens-engine/internal/models"
)

// ErrNoResults signals that there is nothing to export yet.
var ErrNoResults = errors.New("no analysis results to export")

const topHotspots = 5

// Data collects everything one report renders. Series and Forecast are
// optional sections.
type Data struct {
	Username    string
	DatasetName string
	GeneratedAt time.Time

	Observations int
	Dropped      int
	RangeStart   time.Time
	RangeEnd     time.Time

	Algorithm string
	Summaries []models.ClusterSummary
	Noise     int

	Hourly  [24]int
	Weekday [7]int

	SeriesLabel int
	Series      models.DailySeries
	Forecast    *models.ForecastResult
}

// WriteCSV writes the clustered observations as a labeled CSV table.
func WriteCSV(w io.Writer, assignment models.ClusterAssignment) error {
	if len(assignment.Observations) == 0 {
		return ErrNoResults
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"latitude", "longitude", "crime_type", "date_time", "cluster_label"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, obs := range assignment.Observations {
		record := []string{
			strconv.FormatFloat(obs.Latitude, 'f', 6, 64),
			strconv.FormatFloat(obs.Longitude, 'f', 6, 64),
			obs.Category,
			obs.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			strconv.Itoa(assignment.Labels[i]),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// BuildPDF renders the report into w.
func BuildPDF(w io.Writer, data Data) error {
	if data.Observations == 0 {
		return ErrNoResults
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now().UTC()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Crime Hotspot Analysis Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+data.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"), "", 1, "C", false, 0, "")
	if data.Username != "" {
		pdf.CellFormat(0, 6, "Prepared for "+data.Username, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	writeSummarySection(pdf, data)
	writeHotspotSection(pdf, data)
	writeTemporalSection(pdf, data)
	if len(data.Series) > 0 {
		writeSeriesSection(pdf, data.SeriesLabel, data.Series)
	}
	if data.Forecast != nil {
		writeForecastSection(pdf, data.Forecast)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func keyValue(pdf *fpdf.Fpdf, key, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 6, key, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func writeSummarySection(pdf *fpdf.Fpdf, data Data) {
	sectionTitle(pdf, "Dataset Summary")
	keyValue(pdf, "Dataset", data.DatasetName)
	keyValue(pdf, "Observations", strconv.Itoa(data.Observations))
	if data.Dropped > 0 {
		keyValue(pdf, "Rows dropped on load", strconv.Itoa(data.Dropped))
	}
	if !data.RangeStart.IsZero() {
		keyValue(pdf, "Date range",
			data.RangeStart.Format("2006-01-02")+" to "+data.RangeEnd.Format("2006-01-02"))
	}
	keyValue(pdf, "Clustering algorithm", data.Algorithm)
	pdf.Ln(4)
}

func writeHotspotSection(pdf *fpdf.Fpdf, data Data) {
	sectionTitle(pdf, "Top Hotspots")

	headers := []string{"Rank", "Cluster", "Incidents", "Center Latitude", "Center Longitude"}
	widths := []float64{18, 24, 28, 40, 40}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	limit := len(data.Summaries)
	if limit > topHotspots {
		limit = topHotspots
	}
	for i := 0; i < limit; i++ {
		s := data.Summaries[i]
		cells := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(s.Label),
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.CenterLat, 'f', 5, 64),
			strconv.FormatFloat(s.CenterLon, 'f', 5, 64),
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 7, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if limit == 0 {
		pdf.CellFormat(0, 7, "No clusters were found in the current selection.", "", 1, "L", false, 0, "")
	}
	if data.Noise > 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d observations were classified as noise.", data.Noise), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	pdf.Ln(4)
}

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func writeTemporalSection(pdf *fpdf.Fpdf, data Data) {
	peakHour, peakHourCount := 0, 0
	for hour, count := range data.Hourly {
		if count > peakHourCount {
			peakHour, peakHourCount = hour, count
		}
	}
	peakDay, peakDayCount := 0, 0
	for day, count := range data.Weekday {
		if count > peakDayCount {
			peakDay, peakDayCount = day, count
		}
	}
	if peakHourCount == 0 && peakDayCount == 0 {
		return
	}

	sectionTitle(pdf, "Temporal Profile")
	if peakHourCount > 0 {
		keyValue(pdf, "Busiest hour",
			fmt.Sprintf("%02d:00-%02d:59 (%d incidents)", peakHour, peakHour, peakHourCount))
	}
	if peakDayCount > 0 {
		keyValue(pdf, "Busiest weekday",
			fmt.Sprintf("%s (%d incidents)", weekdayNames[peakDay], peakDayCount))
	}
	pdf.Ln(4)
}

func writeSeriesSection(pdf *fpdf.Fpdf, label int, series models.DailySeries) {
	sectionTitle(pdf, "Daily Incident Counts")
	keyValue(pdf, "Cluster", strconv.Itoa(label))
	keyValue(pdf, "Days covered", strconv.Itoa(len(series)))
	keyValue(pdf, "Total incidents", strconv.Itoa(series.Total()))
	pdf.Ln(4)
}

func writeForecastSection(pdf *fpdf.Fpdf, forecast *models.ForecastResult) {
	sectionTitle(pdf, "Forecast")
	if !forecast.Available {
		pdf.CellFormat(0, 7, "Forecast unavailable: "+forecast.Reason, "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	headers := []string{"Day", "Forecast", "Lower 95%", "Upper 95%"}
	widths := []float64{40, 36, 36, 36}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, point := range forecast.Points {
		cells := []string{
			point.Day.Format("2006-01-02"),
			strconv.FormatFloat(point.Forecast, 'f', 2, 64),
			strconv.FormatFloat(point.Lower, 'f', 2, 64),
			strconv.FormatFloat(point.Upper, 'f', 2, 64),
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 7, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}
