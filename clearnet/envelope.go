package clearnet

import (
	"encoding/json"
	"fmt"
	"time"
)

// Request is the unsigned half of an outbound submission: the canonical
// tuple [requestId, method, params, timestamp] that gets signed and wired.
type Request struct {
	RequestID uint64
	Method    string
	Params    json.RawMessage
	Timestamp uint64
}

// NewRequest builds a request tuple with the current time. params must
// already be marshaled JSON.
func NewRequest(id uint64, method string, params json.RawMessage) Request {
	return Request{
		RequestID: id,
		Method:    method,
		Params:    params,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
}

// Payload returns the canonical JSON encoding of the request tuple. This is
// the exact byte sequence every signer signs; it must be identical on the
// service and on every participant, so it is produced once and reused.
func (r Request) Payload() ([]byte, error) {
	return json.Marshal([]any{r.RequestID, r.Method, r.Params, r.Timestamp})
}

// Envelope is a request tuple plus the signatures that authorize it, in
// participant order.
type Envelope struct {
	Req Request
	Sig []string
}

// MarshalJSON encodes the envelope in the wire form
// {"req":[id,method,params,ts],"sig":["0x...", ...]}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Req []any    `json:"req"`
		Sig []string `json:"sig"`
	}{
		Req: []any{e.Req.RequestID, e.Req.Method, e.Req.Params, e.Req.Timestamp},
		Sig: e.Sig,
	})
}

// WireError is the typed failure the settlement service returns in an
// {"err":[...]} frame.
type WireError struct {
	Code    int
	Message string
}

func (e *WireError) Error() string {
	return fmt.Sprintf("settlement error %d: %s", e.Code, e.Message)
}

// Response is one inbound frame from the settlement service, either a result
// or a typed error. Exactly one of Params/Err is meaningful.
type Response struct {
	RequestID uint64
	Method    string
	Params    json.RawMessage
	Err       *WireError
}

// ParseFrame decodes a raw inbound frame. Frames are {"res":[id,method,
// params,ts]} or {"err":[id,code,message]}; anything else is rejected.
func ParseFrame(data []byte) (*Response, error) {
	var frame struct {
		Res []json.RawMessage `json:"res"`
		Err []json.RawMessage `json:"err"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	switch {
	case len(frame.Res) >= 3:
		resp := &Response{Params: frame.Res[2]}
		if err := json.Unmarshal(frame.Res[0], &resp.RequestID); err != nil {
			return nil, fmt.Errorf("parse response id: %w", err)
		}
		if err := json.Unmarshal(frame.Res[1], &resp.Method); err != nil {
			return nil, fmt.Errorf("parse response method: %w", err)
		}
		return resp, nil

	case len(frame.Err) >= 3:
		resp := &Response{Err: &WireError{}}
		if err := json.Unmarshal(frame.Err[0], &resp.RequestID); err != nil {
			return nil, fmt.Errorf("parse error id: %w", err)
		}
		if err := json.Unmarshal(frame.Err[1], &resp.Err.Code); err != nil {
			return nil, fmt.Errorf("parse error code: %w", err)
		}
		if err := json.Unmarshal(frame.Err[2], &resp.Err.Message); err != nil {
			return nil, fmt.Errorf("parse error message: %w", err)
		}
		return resp, nil
	}

	return nil, fmt.Errorf("frame is neither res nor err: %s", data)
}
