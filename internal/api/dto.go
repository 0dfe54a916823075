package api

import (
	"time"

	"cyberlaw-advisor/backend/internal/store"
)

// PredictRequest is the JSON form of a prediction query.
type PredictRequest struct {
	Query string `json:"query"`
}

// PredictionFields is the five-field record rendered by clients.
type PredictionFields struct {
	Section    string `json:"Section"`
	Offense    string `json:"Offense"`
	Punishment string `json:"Punishment"`
	CaseType   string `json:"Case Type"`
	Procedure  string `json:"Procedure"`
}

// PredictResponse is the success payload of /predict.
type PredictResponse struct {
	Message string           `json:"message"`
	Data    PredictionFields `json:"data"`
	PDFURL  string           `json:"pdf_url"`
}

// PredictionDTO is the API representation for a persisted prediction.
type PredictionDTO struct {
	ID         uint             `json:"id"`
	Query      string           `json:"query"`
	Fields     PredictionFields `json:"data"`
	Score      float64          `json:"score"`
	DurationMs int64            `json:"duration_ms"`
	CreatedAt  time.Time        `json:"created_at"`
}

// HistoryResponse is a page of predictions.
type HistoryResponse struct {
	Items []PredictionDTO `json:"items"`
	Total int64           `json:"total"`
}

// PredictionFromModel converts a store row into its DTO.
func PredictionFromModel(p store.Prediction) PredictionDTO {
	return PredictionDTO{
		ID:    p.ID,
		Query: p.Query,
		Fields: PredictionFields{
			Section:    p.Section,
			Offense:    p.Offense,
			Punishment: p.Punishment,
			CaseType:   p.CaseType,
			Procedure:  p.Procedure,
		},
		Score:      p.Score,
		DurationMs: p.DurationMs,
		CreatedAt:  p.CreatedAt,
	}
}
