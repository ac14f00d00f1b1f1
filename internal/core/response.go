package core

import (
	"encoding/base64"
	"encoding/json"
)

// PeriodView is the echoed date range.
type PeriodView struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ChartResponse is the generate-chart success payload. Totals are exact
// decimal numbers on the wire.
type ChartResponse struct {
	Period        PeriodView  `json:"period"`
	TotalExpenses json.Number `json:"total_expenses"`
	TotalIncome   json.Number `json:"total_income"`
	Image         string      `json:"image"`
}

// NewChartResponse assembles the response from the aggregated summary and
// the rendered PNG bytes.
func NewChartResponse(period DateRange, s Summary, png []byte) ChartResponse {
	return ChartResponse{
		Period: PeriodView{
			StartDate: period.Start.String(),
			EndDate:   period.End.String(),
		},
		TotalExpenses: json.Number(s.TotalExpenses.String()),
		TotalIncome:   json.Number(s.TotalIncome.String()),
		Image:         base64.StdEncoding.EncodeToString(png),
	}
}

// DecodeImage returns the PNG bytes carried by the response.
func (r ChartResponse) DecodeImage() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Image)
}
