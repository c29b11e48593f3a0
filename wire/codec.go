package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
)

// DefaultMaxRequestBytes bounds a request document when callers pass no limit.
const DefaultMaxRequestBytes = 64 << 10

// ReadRequest decodes exactly one request document from r, reading at most
// limit bytes. limit <= 0 means DefaultMaxRequestBytes.
// Every field except payload is required; absent or null fields are decode
// errors.
func ReadRequest(r io.Reader, limit int64) (ValidationRequest, error) {
	var doc requestDocument
	if err := readDocument(r, limit, &doc); err != nil {
		return ValidationRequest{}, err
	}
	return doc.request()
}

// requestDocument mirrors ValidationRequest with pointer fields so missing
// keys can be told apart from zero values.
type requestDocument struct {
	RequestID *string `json:"request_id"`
	NodeID    *string `json:"node_id"`
	Payload   *string `json:"payload"`
	Timestamp *uint64 `json:"timestamp"`
}

func (d requestDocument) request() (ValidationRequest, error) {
	switch {
	case d.RequestID == nil:
		return ValidationRequest{}, newError(KindDecode, "missing field request_id")
	case d.NodeID == nil:
		return ValidationRequest{}, newError(KindDecode, "missing field node_id")
	case d.Timestamp == nil:
		return ValidationRequest{}, newError(KindDecode, "missing field timestamp")
	}
	return ValidationRequest{
		RequestID: *d.RequestID,
		NodeID:    *d.NodeID,
		Payload:   d.Payload,
		Timestamp: *d.Timestamp,
	}, nil
}

// ReadResponse decodes exactly one response document from r.
func ReadResponse(r io.Reader, limit int64) (ValidationResponse, error) {
	var resp ValidationResponse
	if err := readDocument(r, limit, &resp); err != nil {
		return ValidationResponse{}, err
	}
	return resp, nil
}

// UnmarshalRequest decodes a request held entirely in memory.
func UnmarshalRequest(b []byte) (ValidationRequest, error) {
	return ReadRequest(bytes.NewReader(b), int64(len(b))+1)
}

// UnmarshalResponse decodes a response held entirely in memory.
func UnmarshalResponse(b []byte) (ValidationResponse, error) {
	return ReadResponse(bytes.NewReader(b), int64(len(b))+1)
}

func readDocument(r io.Reader, limit int64, v any) error {
	if limit <= 0 {
		limit = DefaultMaxRequestBytes
	}
	lr := &io.LimitedReader{R: r, N: limit}

	var raw json.RawMessage
	if err := json.NewDecoder(lr).Decode(&raw); err != nil {
		var netErr net.Error
		var syntaxErr *json.SyntaxError
		switch {
		case errors.As(err, &netErr):
			return wrapError(KindIO, "read document", err)
		case errors.Is(err, io.EOF):
			// lr.N == 0 here means the limit cut the stream before any value.
			if lr.N <= 0 {
				return newError(KindDecode, "document exceeds size limit")
			}
			return newError(KindDecode, "empty document")
		case errors.Is(err, io.ErrUnexpectedEOF):
			if lr.N <= 0 {
				return newError(KindDecode, "document exceeds size limit")
			}
			return wrapError(KindDecode, "truncated document", err)
		case errors.As(err, &syntaxErr):
			return wrapError(KindDecode, "malformed document", err)
		default:
			return wrapError(KindIO, "read document", err)
		}
	}

	// Decode accepts any JSON value; only an object maps onto a document.
	if len(raw) == 0 || raw[0] != '{' {
		return newError(KindDecode, "document is not a JSON object")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return wrapError(KindDecode, "malformed document", err)
	}
	return nil
}

// MarshalResponse serializes resp as one newline-terminated JSON document.
func MarshalResponse(resp ValidationResponse) ([]byte, error) {
	return marshalDocument(resp)
}

// MarshalRequest serializes req as one newline-terminated JSON document.
func MarshalRequest(req ValidationRequest) ([]byte, error) {
	return marshalDocument(req)
}

func marshalDocument(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, wrapError(KindEncode, "encode document", err)
	}
	return append(b, '\n'), nil
}

// WriteResponse encodes resp and writes it to w in a single call.
func WriteResponse(w io.Writer, resp ValidationResponse) error {
	b, err := MarshalResponse(resp)
	if err != nil {
		return err
	}
	return writeAll(w, b)
}

// WriteRequest encodes req and writes it to w in a single call.
func WriteRequest(w io.Writer, req ValidationRequest) error {
	b, err := MarshalRequest(req)
	if err != nil {
		return err
	}
	return writeAll(w, b)
}

func writeAll(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return wrapError(KindIO, "write document", err)
	}
	if n != len(b) {
		return wrapError(KindIO, "write document", io.ErrShortWrite)
	}
	return nil
}
