// Package config provides stake-table configuration for the grid duel server.
//
// The config package handles:
//   - Loading table configurations from JSON files
//   - Configuration validation
//   - A built-in default table
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Tables are stored as JSON files in the configs directory. Each table
// defines:
//   - The bet amount and settlement asset
//   - Grid parameters (size, coin count, move budget)
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	table, err := manager.Load("penny")
//	if err != nil {
//		table = manager.Default()
//	}
package config
