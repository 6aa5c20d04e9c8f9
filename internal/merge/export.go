package merge

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"ProfitSentinel/internal/model"
)

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{"period", "actual", "forecast", "forecast_lower", "forecast_upper"}

// WriteJSON writes records as a JSON array. Absent values are null.
func WriteJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes records with a header row. Absent values are empty cells.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Period, cell(r.Actual), cell(r.Forecast), cell(r.ForecastLower), cell(r.ForecastUpper)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
