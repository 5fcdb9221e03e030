package clearnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// State is the connection lifecycle phase.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateConnected
	StateAuthFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

const (
	// handshakeTimeout bounds the whole connect+authenticate sequence. On
	// expiry the dial fails and no partial handshake state survives.
	handshakeTimeout = 10 * time.Second

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var (
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrAuthTimeout marks a handshake that hit the deadline before the
	// service answered, as opposed to one the service refused.
	ErrAuthTimeout = errors.New("authentication timed out")
)

// Allowance caps what the ephemeral session key may spend per asset.
type Allowance struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

// Config holds everything needed to establish the authenticated connection.
type Config struct {
	// URL is the settlement service websocket endpoint.
	URL string

	// Wallet is the long-lived service identity. It signs the auth
	// assertion and nothing else after the handshake completes.
	Wallet *Signer

	// AppName scopes the auth assertion to this application.
	AppName string

	// Scope is the permission scope requested during auth.
	Scope string

	// SessionTTL is how long the ephemeral session key is valid for.
	SessionTTL time.Duration

	// Allowances are the per-asset spending caps granted to the session key.
	Allowances []Allowance
}

// Conn is the single multiplexed connection to the settlement service. All
// rooms share one Conn; frames are demultiplexed into the correlator so each
// inbound frame reaches at most one waiting call.
type Conn struct {
	cfg     Config
	corr    *Correlator
	session *Signer

	writeMu sync.Mutex
	ws      *websocket.Conn

	state atomic.Int32
	token string

	closed chan struct{}
}

// NewConn prepares a connection in the DISCONNECTED state. Dial performs the
// actual handshake.
func NewConn(cfg Config) *Conn {
	return &Conn{
		cfg:    cfg,
		corr:   NewCorrelator(),
		closed: make(chan struct{}),
	}
}

// State reports the current lifecycle phase.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// SessionSigner returns the ephemeral key signing all post-handshake frames.
// Nil until Dial succeeds.
func (c *Conn) SessionSigner() *Signer {
	return c.session
}

// WalletAddress returns the long-lived service identity address.
func (c *Conn) WalletAddress() string {
	return c.cfg.Wallet.Address()
}

// NextRequestID exposes the connection's monotonically increasing request id
// sequence, used when a request tuple must be built ahead of submission.
func (c *Conn) NextRequestID() uint64 {
	return c.corr.NextID()
}

// Dial connects and runs the challenge/response handshake:
//
//	auth_request(identity, session key, scope, allowances, expiry)
//	<- auth_challenge(token)
//	auth_verify signed by the wallet key over the domain-bound assertion
//	<- success (opaque token) or typed failure
//
// A fresh ephemeral keypair is generated per attempt; nothing carries over
// from a failed handshake. After Dial returns nil, every outbound frame is
// signed with the ephemeral key.
func (c *Conn) Dial(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	session, err := NewSigner()
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.state.Store(int32(StateAuthenticating))
	deadline := time.Now().Add(handshakeTimeout)
	ws.SetReadDeadline(deadline)
	ws.SetWriteDeadline(deadline)

	token, err := c.handshake(ws, session)
	if err != nil {
		ws.Close()
		c.state.Store(int32(StateAuthFailed))
		return authError(err)
	}

	ws.SetReadDeadline(time.Time{})
	ws.SetWriteDeadline(time.Time{})

	c.ws = ws
	c.session = session
	c.token = token
	c.state.Store(int32(StateConnected))

	go c.readLoop()
	go c.pingLoop()
	return nil
}

type authRequestParams struct {
	Address            string      `json:"address"`
	SessionKey         string      `json:"session_key"`
	AppName            string      `json:"app_name"`
	Scope              string      `json:"scope"`
	Allowances         []Allowance `json:"allowances"`
	Expire             uint64      `json:"expire"`
	ApplicationAddress string      `json:"application,omitempty"`
}

type authChallengeParams struct {
	ChallengeMessage string `json:"challenge_message"`
}

type authVerifyParams struct {
	Challenge string `json:"challenge"`
}

type authSuccessParams struct {
	Success  bool   `json:"success"`
	JwtToken string `json:"jwt_token,omitempty"`
}

// authAssertion is the structured, domain-bound statement the wallet key
// signs over the challenge plus the original request parameters. Binding the
// whole tuple prevents a challenge being replayed against different
// parameters.
type authAssertion struct {
	Challenge   string      `json:"challenge"`
	Scope       string      `json:"scope"`
	Wallet      string      `json:"wallet"`
	Participant string      `json:"participant"`
	AppName     string      `json:"app_name"`
	Allowances  []Allowance `json:"allowances"`
	Expire      uint64      `json:"expire"`
}

func (c *Conn) handshake(ws *websocket.Conn, session *Signer) (string, error) {
	expire := uint64(time.Now().Add(c.cfg.SessionTTL).Unix())

	reqParams, err := json.Marshal(authRequestParams{
		Address:    c.cfg.Wallet.Address(),
		SessionKey: session.Address(),
		AppName:    c.cfg.AppName,
		Scope:      c.cfg.Scope,
		Allowances: c.cfg.Allowances,
		Expire:     expire,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	req := NewRequest(c.corr.NextID(), MethodAuthRequest, reqParams)
	if err := writeSigned(ws, req, session); err != nil {
		return "", err
	}

	challenge, err := readChallengeFrame(ws)
	if err != nil {
		return "", err
	}

	assertion, err := json.Marshal(authAssertion{
		Challenge:   challenge,
		Scope:       c.cfg.Scope,
		Wallet:      c.cfg.Wallet.Address(),
		Participant: session.Address(),
		AppName:     c.cfg.AppName,
		Allowances:  c.cfg.Allowances,
		Expire:      expire,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth assertion: %w", err)
	}
	walletSig, err := c.cfg.Wallet.Sign(assertion)
	if err != nil {
		return "", err
	}

	verifyParams, err := json.Marshal(authVerifyParams{Challenge: challenge})
	if err != nil {
		return "", fmt.Errorf("marshal auth verify: %w", err)
	}
	verify := Envelope{
		Req: NewRequest(c.corr.NextID(), MethodAuthVerify, verifyParams),
		Sig: []string{walletSig},
	}
	if err := writeEnvelope(ws, verify); err != nil {
		return "", err
	}

	resp, err := readFrame(ws)
	if err != nil {
		return "", err
	}
	if resp.Err != nil {
		return "", fmt.Errorf("%w: %s", ErrAuthRejected, resp.Err.Message)
	}
	var success authSuccessParams
	if err := json.Unmarshal(resp.Params, &success); err != nil {
		return "", fmt.Errorf("parse auth result: %w", err)
	}
	if !success.Success {
		return "", ErrAuthRejected
	}
	return success.JwtToken, nil
}

// authError separates handshakes the deadline killed from handshakes the
// service refused.
func authError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrAuthTimeout, err)
	}
	return err
}

func readChallengeFrame(ws *websocket.Conn) (string, error) {
	resp, err := readFrame(ws)
	if err != nil {
		return "", err
	}
	if resp.Err != nil {
		return "", fmt.Errorf("%w: %s", ErrAuthRejected, resp.Err.Message)
	}
	if resp.Method != MethodAuthChallenge {
		return "", fmt.Errorf("expected %s, got %s", MethodAuthChallenge, resp.Method)
	}
	var params authChallengeParams
	if err := json.Unmarshal(resp.Params, &params); err != nil {
		return "", fmt.Errorf("parse challenge: %w", err)
	}
	if params.ChallengeMessage == "" {
		return "", errors.New("empty challenge")
	}
	return params.ChallengeMessage, nil
}

func readFrame(ws *websocket.Conn) (*Response, error) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read handshake frame: %w", err)
	}
	return ParseFrame(data)
}

func writeSigned(ws *websocket.Conn, req Request, signer *Signer) error {
	payload, err := req.Payload()
	if err != nil {
		return err
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return err
	}
	return writeEnvelope(ws, Envelope{Req: req, Sig: []string{sig}})
}

func writeEnvelope(ws *websocket.Conn, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

// Request performs an ordinary id-correlated exchange signed with the
// ephemeral session key.
func (c *Conn) Request(ctx context.Context, method string, params any, timeout time.Duration) (*Response, error) {
	if c.State() != StateConnected {
		return nil, ErrConnectionClosed
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	req := NewRequest(c.corr.NextID(), method, raw)
	payload, err := req.Payload()
	if err != nil {
		return nil, err
	}
	sig, err := c.session.Sign(payload)
	if err != nil {
		return nil, err
	}

	call := c.corr.Register(req.RequestID, timeout)
	if err := c.write(Envelope{Req: req, Sig: []string{sig}}); err != nil {
		call.Cancel()
		return nil, err
	}
	return call.Await(ctx)
}

// Submit sends a pre-built, pre-signed envelope and waits for its
// acknowledgment by method tag. Used for multi-signer submissions whose
// signatures were collected over the frozen request tuple.
func (c *Conn) Submit(ctx context.Context, env Envelope, timeout time.Duration) (*Response, error) {
	if c.State() != StateConnected {
		return nil, ErrConnectionClosed
	}

	call := c.corr.RegisterSubmission(env.Req.RequestID, env.Req.Method, timeout)
	if err := c.write(env); err != nil {
		call.Cancel()
		return nil, err
	}
	return call.Await(ctx)
}

func (c *Conn) write(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// readLoop demultiplexes inbound frames into the correlator. Unclaimed
// frames are logged and dropped; the service does not push unsolicited
// frames we depend on.
func (c *Conn) readLoop() {
	defer func() {
		c.state.Store(int32(StateDisconnected))
		c.corr.FailAll(ErrConnectionClosed)
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("clearnet: read error: %v", err)
			}
			return
		}
		resp, err := ParseFrame(data)
		if err != nil {
			log.Printf("clearnet: dropping unparseable frame: %v", err)
			continue
		}
		if !c.corr.Dispatch(resp) {
			log.Printf("clearnet: unclaimed frame method=%s id=%d", resp.Method, resp.RequestID)
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Close tears the connection down and rejects all pending calls.
func (c *Conn) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	if c.ws != nil {
		return c.ws.Close()
	}
	return nil
}
