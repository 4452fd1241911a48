package dto

type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

// TorchRequest uses a pointer so a missing field is distinguishable from false.
type TorchRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type SubmitResponse struct {
	RequestID uint64 `json:"request_id"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Phase    string `json:"phase"`
	Displays int    `json:"displays"`
}

// InjectScanRequest pushes a code through the scan bus, exactly as a decoder would.
type InjectScanRequest struct {
	Code      string `json:"code" validate:"required"`
	Symbology string `json:"symbology"`
}
