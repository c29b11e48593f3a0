package wire

// StatusOK is the status string of every successful response.
const StatusOK = "PIP"

// ValidationRequest asks the service to validate one node event.
type ValidationRequest struct {
	RequestID string  `json:"request_id"`
	NodeID    string  `json:"node_id"`
	Payload   *string `json:"payload,omitempty"`
	Timestamp uint64  `json:"timestamp"`
}

// HasPayload reports whether the request carries a payload.
func (r ValidationRequest) HasPayload() bool { return r.Payload != nil }

// ValidationResponse is the service's answer to one ValidationRequest.
//
// Verified is always true; it is a success marker, not the result of a check.
// ProcessingTime is in microseconds. Timestamp is the server's unix time when
// the response was built.
type ValidationResponse struct {
	RequestID          string  `json:"request_id"`
	NodeID             string  `json:"node_id"`
	PayloadTransformed *string `json:"payload_transformed,omitempty"`
	Verified           bool    `json:"verified"`
	Signature          string  `json:"signature"`
	LayersUsed         int     `json:"layers_used"`
	ProcessingTime     uint64  `json:"processing_time"`
	Status             string  `json:"status"`
	Timestamp          uint64  `json:"timestamp"`
}
