package clearnet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Protocol method names.
const (
	MethodAuthRequest   = "auth_request"
	MethodAuthChallenge = "auth_challenge"
	MethodAuthVerify    = "auth_verify"
	MethodCreateSession = "create_app_session"
	MethodSubmitState   = "submit_app_state"
	MethodCloseSession  = "close_app_session"
)

// Protocol is the version marker every session definition carries.
const Protocol = "clearnet-rpc/0.2"

// Definition is the channel definition every participant signs: who takes
// part, with what authorization weight, and under which quorum threshold.
// Participant order is load-bearing; signatures must mirror it exactly.
type Definition struct {
	Protocol     string   `json:"protocol"`
	Participants []string `json:"participants"`
	Weights      []int64  `json:"weights"`
	Quorum       uint64   `json:"quorum"`
	Challenge    uint64   `json:"challenge"`
	Nonce        uint64   `json:"nonce"`
}

// Allocation is one entry of the fund distribution vector attached to every
// session submission.
type Allocation struct {
	Participant string          `json:"participant"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
}

// CreateSessionParams is the payload of a create_app_session submission.
type CreateSessionParams struct {
	Definition  Definition   `json:"definition"`
	Allocations []Allocation `json:"allocations"`
	SessionData string       `json:"session_data,omitempty"`
}

// StateParams is the payload of checkpoint and close submissions.
type StateParams struct {
	AppSessionID string       `json:"app_session_id"`
	Allocations  []Allocation `json:"allocations"`
	SessionData  string       `json:"session_data,omitempty"`
}

// SessionAck is the acknowledgment params for session submissions.
type SessionAck struct {
	AppSessionID string `json:"app_session_id"`
	Version      uint64 `json:"version"`
	Status       string `json:"status"`
}

// Client submits session operations to the settlement service over the
// shared authenticated connection.
type Client struct {
	conn *Conn
}

func NewClient(conn *Conn) *Client {
	return &Client{conn: conn}
}

// ServiceAddress returns the settlement-side identity that co-signs every
// session this client submits.
func (cl *Client) ServiceAddress() string {
	return cl.conn.WalletAddress()
}

// BuildCreateRequest freezes the create_app_session request tuple. The tuple
// is built exactly once per proposal: its bytes are what every participant
// signs, so it must not be regenerated between signature collection and
// submission.
func (cl *Client) BuildCreateRequest(params CreateSessionParams) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("marshal create params: %w", err)
	}
	return NewRequest(cl.conn.NextRequestID(), MethodCreateSession, raw), nil
}

// SignRequest signs the frozen request tuple with the service's ephemeral
// session key.
func (cl *Client) SignRequest(req Request) (string, error) {
	payload, err := req.Payload()
	if err != nil {
		return "", err
	}
	return cl.conn.SessionSigner().Sign(payload)
}

// SubmitCreate sends the assembled multi-signer envelope and returns the
// session id the service assigned. sigs must already be in definition order
// with the service signature last. On timeout or rejection the caller keeps
// everything it needs to resubmit the identical envelope.
func (cl *Client) SubmitCreate(ctx context.Context, req Request, sigs []string) (string, error) {
	resp, err := cl.conn.Submit(ctx, Envelope{Req: req, Sig: sigs}, SubmissionTimeout)
	if err != nil {
		return "", err
	}
	var ack SessionAck
	if err := json.Unmarshal(resp.Params, &ack); err != nil {
		return "", fmt.Errorf("parse create ack: %w", err)
	}
	if ack.AppSessionID == "" {
		return "", fmt.Errorf("create ack without session id")
	}
	return ack.AppSessionID, nil
}

// SubmitCheckpoint sends an advisory state checkpoint signed by the service
// key alone. The service's weight already meets quorum, so no other
// signature is required.
func (cl *Client) SubmitCheckpoint(ctx context.Context, params StateParams) error {
	return cl.submitState(ctx, MethodSubmitState, params)
}

// SubmitClose sends the final close submission with the payout allocation.
func (cl *Client) SubmitClose(ctx context.Context, params StateParams) error {
	return cl.submitState(ctx, MethodCloseSession, params)
}

func (cl *Client) submitState(ctx context.Context, method string, params StateParams) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}
	req := NewRequest(cl.conn.NextRequestID(), method, raw)
	sig, err := cl.SignRequest(req)
	if err != nil {
		return err
	}
	_, err = cl.conn.Submit(ctx, Envelope{Req: req, Sig: []string{sig}}, SubmissionTimeout)
	return err
}
