package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is "active" while at least one attachment holds a live handle,
	// "idle" otherwise.
	State           string `json:"state"`
	AttachmentCount int    `json:"attachment_count"`
	HandleCount     int    `json:"handle_count"`
	StableCount     int    `json:"stable_count"`
	InertCount      int    `json:"inert_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}
