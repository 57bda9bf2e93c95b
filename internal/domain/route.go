package domain

// RouteCandidate is a provider-supplied route geometry with travel metrics.
// Candidates live for a single request and are never cached.
type RouteCandidate struct {
	ProviderID  string  `json:"provider_id"`
	Geometry    []Point `json:"geometry"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// RiskSummary is the structured object handed to the external narrative
// generator. This core only produces the structure, never prose.
type RiskSummary struct {
	TotalIncidents    int              `json:"total_incidents"`
	TotalCasualties   int              `json:"total_casualties"`
	SeverityBreakdown map[Severity]int `json:"severity_breakdown,omitempty"`
	RiskLevel         string           `json:"risk_level"`
}

// PredictionRequest is the payload for the external point-risk service
type PredictionRequest struct {
	Source      Point `json:"source"`
	Destination Point `json:"destination"`
}

// PredictionResponse is the external point-risk service answer
type PredictionResponse struct {
	Prediction float64 `json:"prediction"`
	Confidence float64 `json:"confidence"`
}
