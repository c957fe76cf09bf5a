package models

// Float is the stored summary of one float cycle.
type Float struct {
	ID              int64      `json:"id"`
	PlatformNumber  string     `json:"platformNumber"`
	CycleNumber     *int       `json:"cycleNumber"`
	FileName        string     `json:"fileName"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	ObservationTime *Timestamp `json:"observationTime"`
	CreationTime    *Timestamp `json:"creationTime"`
	Parameters      []string   `json:"parameters"`
	DataMode        string     `json:"dataMode"`
	CreatedAt       Timestamp  `json:"createdAt"`
	UpdatedAt       Timestamp  `json:"updatedAt"`
}

// FloatList is the response of GET /v1/floats.
type FloatList struct {
	Items []Float `json:"items"`
	Count int     `json:"count"`
}

// IngestResponse is returned after a file has been stored.
type IngestResponse struct {
	Message        string `json:"message"`
	ID             int64  `json:"id"`
	PlatformNumber string `json:"platformNumber"`
	CycleNumber    *int   `json:"cycleNumber"`
	Created        bool   `json:"created"`
}

// IngestJobRequest is the body of POST /v1/ingest-jobs.
type IngestJobRequest struct {
	URL string `json:"url"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfileSeries is one depth-resolved parameter series.
type ProfileSeries struct {
	Values   []float64 `json:"values"`
	Units    string    `json:"units"`
	LongName string    `json:"longName"`
}

// FloatProfile is the response of GET /v1/floats/{floatId}/profile.
type FloatProfile struct {
	PlatformNumber string                   `json:"platformNumber"`
	ProfileData    map[string]ProfileSeries `json:"profileData"`
}

// ParameterProfile is the response of GET /v1/floats/{floatId}/profile/{parameter}.
type ParameterProfile struct {
	PlatformNumber string        `json:"platformNumber"`
	Parameter      string        `json:"parameter"`
	Data           ProfileSeries `json:"data"`
}

// ComparisonEntry is one float in a comparison, keyed by platform number.
type ComparisonEntry struct {
	ProfileData map[string]ProfileSeries `json:"profileData"`
	Position    Position                 `json:"position"`
	Date        *Timestamp               `json:"date"`
	CycleNumber *int                     `json:"cycleNumber"`
}

// Trajectory is the response of GET /v1/trajectories/{date}.
type Trajectory struct {
	Date    string            `json:"date"`
	Message string            `json:"message,omitempty"`
	Center  *[2]float64       `json:"center"`
	Points  []TrajectoryPoint `json:"points"`
}

// TrajectoryPoint is one observed position.
type TrajectoryPoint struct {
	FloatID        int64      `json:"floatId"`
	PlatformNumber string     `json:"platformNumber"`
	CycleNumber    *int       `json:"cycleNumber"`
	Position       [2]float64 `json:"position"`
	Time           Timestamp  `json:"time"`
}
