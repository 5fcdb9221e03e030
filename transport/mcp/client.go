package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gridduel/server/game/config"
	"github.com/gridduel/server/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Grid Duel Admin",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Grid Duel Server - Admin Interface

This is a thin read-only client that proxies all requests to the REST API.

AVAILABLE TOOLS:
- list_rooms: List live rooms with lifecycle and session phase
- room_state: Inspect one room
- session_audit: Dump a room's session audit trail (move log + fee ledger)
- list_tables: List stake tables available to joinRoom

Rooms and channel sessions cannot be mutated from here; all writes go
through the game websocket protocol.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List live rooms with lifecycle, occupants and session phase",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of rooms to return (newest first)",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_state",
		Description: "Get one room's state projection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to inspect",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleRoomState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_audit",
		Description: "Get the audit trail (move log and fee ledger) of a room's channel session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room whose session to audit",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleSessionAudit)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_tables",
		Description: "List stake tables available to joinRoom",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListTables)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	path := "/api/rooms"
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, int(limit))
	}

	var response struct {
		Count int                 `json:"count"`
		Rooms []*service.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Rooms (%d):\n\n", response.Count)
	for _, r := range response.Rooms {
		fmt.Fprintf(&b, "- %s [%s/%s] table=%s occupants=%d created=%s\n",
			r.ID, r.Lifecycle, r.Phase, r.Table, len(r.Occupants), r.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleRoomState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var info service.RoomInfo
	if err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s", roomID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleSessionAudit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var audit service.AuditInfo
	if err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s/audit", roomID), nil, &audit); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAudit(&audit)), nil
}

func (c *Client) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int             `json:"count"`
		Tables []*config.Table `json:"tables"`
	}
	if err := c.apiCall("GET", "/api/tables", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stake Tables (%d):\n\n", response.Count)
	for _, t := range response.Tables {
		fmt.Fprintf(&b, "- %s: bet %s %s, grid %dx%d\n",
			t.Name, t.BetAmount, t.Asset, t.Game.GridSize, t.Game.GridSize)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting helpers

func formatRoomInfo(info *service.RoomInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s\n", info.ID)
	fmt.Fprintf(&b, "Lifecycle: %s\n", info.Lifecycle)
	fmt.Fprintf(&b, "Session phase: %s\n", info.Phase)
	fmt.Fprintf(&b, "Table: %s (bet %s %s)\n", info.Table, info.BetAmount, info.Asset)
	fmt.Fprintf(&b, "Occupants (%d):\n", len(info.Occupants))
	for _, addr := range info.Occupants {
		fmt.Fprintf(&b, "  - %s\n", addr)
	}
	fmt.Fprintf(&b, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	return b.String()
}

func formatAudit(audit *service.AuditInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (room %s)\n", audit.SessionID, audit.RoomID)
	if audit.Unsettled {
		b.WriteString("WARNING: close submission failed, settlement unresolved\n")
	}
	fmt.Fprintf(&b, "Game: %s, protocol %s, bet %s %s\n",
		audit.Metadata.GameType, audit.Metadata.Protocol, audit.Metadata.BetAmount, audit.Metadata.Asset)

	fmt.Fprintf(&b, "\nFee ledger (%d events):\n", len(audit.Metadata.FeeLedger))
	for _, ev := range audit.Metadata.FeeLedger {
		line := fmt.Sprintf("  %s %s actor=%s", ev.Timestamp.Format("15:04:05"), ev.Event, ev.Actor)
		if ev.Amount != nil {
			line += fmt.Sprintf(" amount=%s", ev.Amount)
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "\nMove log (%d moves):\n", len(audit.Metadata.MoveLog))
	for _, mv := range audit.Metadata.MoveLog {
		fmt.Fprintf(&b, "  #%d %s %s at %s\n", mv.Sequence, mv.Participant, mv.Action, mv.Timestamp.Format("15:04:05"))
	}
	return b.String()
}
