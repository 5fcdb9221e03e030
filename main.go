// Command gridduel starts the Grid Duel session server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, the clearnode endpoint, room
// size, debug logging, version output, and optional ngrok tunneling for easy
// external access during development. The long-lived service wallet key is
// read from the SERVICE_PRIVATE_KEY environment variable (use cmd/keygen to
// mint one).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/gridduel/server/api"
	"github.com/gridduel/server/clearnet"
	"github.com/gridduel/server/game/config"
	"github.com/gridduel/server/game/room"
	"github.com/gridduel/server/game/service"
	"github.com/gridduel/server/game/session"
	"github.com/gridduel/server/transport/mcp"
	"github.com/gridduel/server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid Duel Server"
)

// Per-asset spending cap granted to the ephemeral session key at auth time.
var defaultAllowanceCap = decimal.NewFromInt(100)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getConfigDirDefault(), "Directory containing table configurations")
	clearnodeURL = flag.String("clearnode-url", getClearnodeURLDefault(), "Settlement service websocket endpoint")
	roomSize     = flag.Int("room-size", 1, "Number of player seats per room")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getConfigDirDefault returns the default configuration directory.
// It first honors the CONFIG_DIR environment variable, then falls back to "configs".
func getConfigDirDefault() string {
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		return configDir
	}
	return "configs"
}

// getClearnodeURLDefault honors the CLEARNODE_URL environment variable, then
// falls back to the public sandbox clearnode.
func getClearnodeURLDefault() string {
	if url := os.Getenv("CLEARNODE_URL"); url != "" {
		return url
	}
	return "wss://clearnet-sandbox.yellow.com/ws"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  SERVICE_PRIVATE_KEY   Hex-encoded service wallet key (required)\n")
		fmt.Fprintf(os.Stderr, "  CLEARNODE_URL         Settlement service endpoint\n")
		fmt.Fprintf(os.Stderr, "  CONFIG_DIR            Table configuration directory\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		// Only log if it's not a "file not found" error
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	// Show version if requested
	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	// Setup logging
	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	// Determine mode from command
	args := flag.Args()
	mode := "server" // default
	if len(args) > 0 {
		mode = args[0]
	}

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	// Initialize services
	svcs, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.ledgerConn.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		// Run MCP stdio server with internal HTTP server
		runStdioMCPWithInternalServer(svcs)
		return

	case "server", "http":
		// Run HTTP server with API, WebSocket, and MCP endpoint
		runHTTPServer(svcs)

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// services bundles everything the run modes need.
type services struct {
	game       service.GameService
	tables     *config.Manager
	ledgerConn *clearnet.Conn
}

// initializeServices loads table configs, authenticates against the clearnode,
// and wires the room registry, session negotiator, and game service together.
func initializeServices() (*services, error) {
	tables, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	key := os.Getenv("SERVICE_PRIVATE_KEY")
	if key == "" {
		return nil, fmt.Errorf("SERVICE_PRIVATE_KEY is not set (run cmd/keygen to mint a service wallet)")
	}
	wallet, err := clearnet.SignerFromHex(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load service wallet: %w", err)
	}

	conn := clearnet.NewConn(clearnet.Config{
		URL:        *clearnodeURL,
		Wallet:     wallet,
		AppName:    "grid-duel",
		Scope:      "app.create",
		SessionTTL: time.Hour,
		Allowances: tableAllowances(tables),
	})

	dialCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := conn.Dial(dialCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to clearnode at %s: %w", *clearnodeURL, err)
	}
	log.Printf("Authenticated with clearnode as %s", conn.WalletAddress())

	negotiator := session.NewNegotiator(session.NewArena(), clearnet.NewClient(conn))
	rooms := room.NewRegistry(*roomSize)
	gameService := service.NewGameService(rooms, negotiator, tables)

	return &services{
		game:       gameService,
		tables:     tables,
		ledgerConn: conn,
	}, nil
}

// tableAllowances grants the session key a spending cap for every asset a
// configured table can stake, so submissions never exceed what auth approved.
func tableAllowances(tables *config.Manager) []clearnet.Allowance {
	assets := map[string]bool{tables.Default().Asset: true}
	if list, err := tables.List(); err == nil {
		for _, t := range list {
			assets[t.Asset] = true
		}
	}
	allowances := make([]clearnet.Allowance, 0, len(assets))
	for asset := range assets {
		allowances = append(allowances, clearnet.Allowance{
			Asset:  asset,
			Amount: defaultAllowanceCap,
		})
	}
	return allowances
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(svcs *services) {
	// Create WebSocket hub with the game service as message handler
	hub := websocket.NewHub(svcs.game)
	go hub.Run()

	// Create API server
	apiServer := api.NewServer(svcs.game, svcs.tables, hub)

	// Setup HTTP server address
	addr := fmt.Sprintf("%s:%d", *host, *port)

	// Create MCP client for /mcp endpoint
	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	// Always add MCP endpoint for HTTP server
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Start regular HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Check if ngrok should be enabled (from flag or environment)
	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		// Check environment variable if flag not set
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	// Start ngrok tunnel if enabled
	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Get auth token from flag or environment (support both naming conventions)
			authToken := *ngrokAuth
			if authToken == "" {
				authToken = os.Getenv("NGROK_AUTHTOKEN")
				if authToken == "" {
					authToken = os.Getenv("NGROK_AUTH_TOKEN") // Also support underscore version
				}
			}

			if authToken == "" {
				log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
				return
			}

			log.Println("Starting ngrok tunnel...")

			// Get domain from flag or environment
			domain := *ngrokDomain
			if domain == "" {
				domain = os.Getenv("NGROK_DOMAIN")
			}

			// Configure ngrok endpoint
			var tunnel ngrokConfig.Tunnel
			if domain != "" {
				tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
				log.Printf("Using custom ngrok domain: %s", domain)
			} else {
				tunnel = ngrokConfig.HTTPEndpoint()
			}

			// Start ngrok tunnel
			tun, err := ngrok.Listen(ctx,
				tunnel,
				ngrok.WithAuthtoken(authToken),
			)
			if err != nil {
				log.Printf("Failed to start ngrok tunnel: %v", err)
				return
			}
			defer func() {
				if err := tun.Close(); err != nil {
					log.Printf("Failed to close ngrok tunnel: %v", err)
				}
			}()

			ngrokURL := tun.URL()
			log.Printf("Ngrok tunnel established: %s", ngrokURL)
			log.Printf("  REST API (ngrok): %s/api", ngrokURL)
			log.Printf("  WebSocket (ngrok): %s/ws", ngrokURL)
			log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

			// Serve HTTP through ngrok tunnel
			if err := http.Serve(tun, mainRouter); err != nil && err != http.ErrServerClosed {
				log.Printf("Ngrok server error: %v", err)
			}
			log.Println("Ngrok tunnel closed")
		}()
	}

	// Wait for shutdown signal
	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Wait for all goroutines to finish
	wg.Wait()
	log.Println("Server stopped")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(svcs *services) {
	var baseURL string
	var httpServer *http.Server
	var listener net.Listener

	// First, try to connect to external API server at localhost:8080
	externalURL := "http://localhost:8080"
	log.Printf("Checking for external API server at %s...", externalURL)

	// Test if external server is running
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		// No external server found, start internal one
		log.Printf("No external API server found, starting internal HTTP server")

		// Start internal HTTP server on a random available port
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}

		// Get the actual port that was assigned
		internalPort := listener.Addr().(*net.TCPAddr).Port
		internalAddr := fmt.Sprintf("127.0.0.1:%d", internalPort)

		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		// Create WebSocket hub
		hub := websocket.NewHub(svcs.game)
		go hub.Run()

		// Create API server
		apiServer := api.NewServer(svcs.game, svcs.tables, hub)

		// Start internal HTTP server in background
		httpServer = &http.Server{
			Handler: apiServer,
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		// Wait a moment for the server to be ready
		time.Sleep(100 * time.Millisecond)

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	// Create MCP client pointing to the selected server
	mcpClient := mcp.NewClient(baseURL)

	// Run MCP stdio server (blocking)
	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}
