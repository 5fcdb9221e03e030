package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestGenerate(t *testing.T) {
	address, privHex, err := generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		t.Errorf("Unexpected address format: %s", address)
	}
	if address != strings.ToLower(address) {
		t.Errorf("Address should be lowercase: %s", address)
	}
	if !strings.HasPrefix(privHex, "0x") || len(privHex) != 66 {
		t.Errorf("Unexpected private key format: %s", privHex)
	}

	// The key must round-trip to the same address.
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		t.Fatalf("Generated key does not parse: %v", err)
	}
	recovered := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	if recovered != address {
		t.Errorf("Key recovers to %s, want %s", recovered, address)
	}
}

func TestGenerateIsUnique(t *testing.T) {
	a1, _, err := generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	a2, _, err := generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if a1 == a2 {
		t.Error("Two generated keys share the same address")
	}
}

func TestAppendEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	if err := appendEnv(path, "0xabc123"); err != nil {
		t.Fatalf("appendEnv failed: %v", err)
	}
	if err := appendEnv(path, "0xdef456"); err != nil {
		t.Fatalf("appendEnv failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read env file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "SERVICE_PRIVATE_KEY=0xabc123" {
		t.Errorf("Unexpected first line: %s", lines[0])
	}
	if lines[1] != "SERVICE_PRIVATE_KEY=0xdef456" {
		t.Errorf("Unexpected second line: %s", lines[1])
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat env file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}
}
