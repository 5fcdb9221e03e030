package clearnet

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnvelopeWireShape(t *testing.T) {
	req := Request{
		RequestID: 7,
		Method:    MethodCreateSession,
		Params:    json.RawMessage(`{"definition":{}}`),
		Timestamp: 1700000000000,
	}
	env := Envelope{Req: req, Sig: []string{"0xaa", "0xbb"}}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Req []json.RawMessage `json:"req"`
		Sig []string          `json:"sig"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Req) != 4 {
		t.Fatalf("req tuple has %d elements, want 4", len(decoded.Req))
	}
	if string(decoded.Req[1]) != `"create_app_session"` {
		t.Errorf("method element = %s", decoded.Req[1])
	}
	if len(decoded.Sig) != 2 || decoded.Sig[1] != "0xbb" {
		t.Errorf("sig = %v", decoded.Sig)
	}
}

func TestRequestPayloadIsStable(t *testing.T) {
	req := NewRequest(1, MethodSubmitState, json.RawMessage(`{"a":1}`))

	first, err := req.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	second, err := req.Payload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("payload not stable: %s vs %s", first, second)
	}
	if !strings.HasPrefix(string(first), "[1,") {
		t.Errorf("payload does not start with the request id: %s", first)
	}
}

func TestParseFrameResult(t *testing.T) {
	resp, err := ParseFrame([]byte(`{"res":[12,"create_app_session",{"app_session_id":"0xs1"},1700000000000]}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if resp.RequestID != 12 || resp.Method != MethodCreateSession {
		t.Errorf("got id=%d method=%q", resp.RequestID, resp.Method)
	}
	if resp.Err != nil {
		t.Errorf("unexpected error: %v", resp.Err)
	}

	var params SessionAck
	if err := json.Unmarshal(resp.Params, &params); err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.AppSessionID != "0xs1" {
		t.Errorf("session id = %q", params.AppSessionID)
	}
}

func TestParseFrameError(t *testing.T) {
	resp, err := ParseFrame([]byte(`{"err":[12,-32000,"quorum not met"]}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if resp.Err == nil {
		t.Fatal("expected wire error")
	}
	if resp.Err.Code != -32000 || resp.Err.Message != "quorum not met" {
		t.Errorf("got %+v", resp.Err)
	}
}

func TestParseFrameGarbage(t *testing.T) {
	for _, frame := range []string{``, `{}`, `{"res":[1]}`, `[1,2,3]`, `{"other":true}`} {
		if _, err := ParseFrame([]byte(frame)); err == nil {
			t.Errorf("ParseFrame(%q) accepted garbage", frame)
		}
	}
}
