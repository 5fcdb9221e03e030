package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gridduel/server/game/engine"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Table is one stake table: the wager a room plays for plus the grid
// parameters of its game instances.
type Table struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BetAmount   decimal.Decimal `json:"bet_amount"`
	Asset       string          `json:"asset"`
	Game        engine.Config   `json:"game"`
}

// Validate checks the table for values the negotiation layer cannot work
// with.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if t.Asset == "" {
		return fmt.Errorf("%w: asset is required", ErrInvalidConfig)
	}
	if t.BetAmount.IsNegative() {
		return fmt.Errorf("%w: bet amount %s is negative", ErrInvalidConfig, t.BetAmount)
	}
	return nil
}

// Manager handles table loading and caching.
type Manager struct {
	configDir    string
	defaultTable *Table
	tables       map[string]*Table
	mu           sync.RWMutex
}

// NewManager creates a configuration manager rooted at configDir.
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	return &Manager{
		configDir:    configDir,
		tables:       make(map[string]*Table),
		defaultTable: builtinDefault(),
	}, nil
}

func builtinDefault() *Table {
	return &Table{
		Name:        "default",
		Description: "Free-entry table with standard grid parameters",
		BetAmount:   decimal.NewFromFloat(0.01),
		Asset:       "usdc",
		Game:        engine.Config{},
	}
}

// Default returns the built-in table used when no name is given.
func (m *Manager) Default() *Table {
	return m.defaultTable
}

// Load returns a table by name, reading it from disk on first use.
func (m *Manager) Load(name string) (*Table, error) {
	m.mu.RLock()
	if table, exists := m.tables[name]; exists {
		m.mu.RUnlock()
		return table, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if table, exists := m.tables[name]; exists {
		return table, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	m.tables[name] = &table
	return &table, nil
}

// List returns every table available in the config directory.
func (m *Manager) List() ([]*Table, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var tables []*Table
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		table, err := m.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip unparseable files rather than failing the listing.
			continue
		}
		tables = append(tables, table)
	}
	return tables, nil
}
