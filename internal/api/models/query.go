package models

import "github.com/argodesk/argodesk/internal/query"

// QueryRequest is the body of POST /v1/queries.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse answers one question. MapData and Visualizations are null
// when the answer carries no records.
type QueryResponse struct {
	Response       string                     `json:"response"`
	MapData        *query.MapPayload          `json:"mapData"`
	Visualizations map[string]query.ChartSpec `json:"visualizations"`
	Intent         string                     `json:"intent"`
}

// QueryHistoryEntry is one answered question.
type QueryHistoryEntry struct {
	ID       int64     `json:"id"`
	Question string    `json:"question"`
	Response string    `json:"response"`
	Intent   string    `json:"intent"`
	AskedAt  Timestamp `json:"askedAt"`
}

// QueryHistory is the response of GET /v1/queries/history.
type QueryHistory struct {
	Items []QueryHistoryEntry `json:"items"`
	Limit int                 `json:"limit"`
}
