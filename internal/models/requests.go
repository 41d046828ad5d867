package models

// DetectRequest selects a clustering algorithm and its parameters.
type DetectRequest struct {
	Algorithm    string  `json:"algorithm"`
	RadiusKm     float64 `json:"radius_km"`
	MinNeighbors int     `json:"min_neighbors"`
	K            int     `json:"k"`
}

// ForecastRequest asks for a per-cluster forecast over a day horizon.
type ForecastRequest struct {
	HorizonDays int `json:"horizon_days"`
}

// FilterRequest updates the active session filter. Dates are inclusive
// calendar days in ISO form (2006-01-02); empty means unbounded.
type FilterRequest struct {
	Categories []string `json:"categories"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

// Credentials carries a signup or login attempt.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
