// Command keygen mints a secp256k1 service wallet keypair for the Grid Duel
// server. It prints the address and the hex private key, or appends a
// SERVICE_PRIVATE_KEY entry to a .env file so the server picks it up on the
// next start.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "keygen",
		Usage: "generate a secp256k1 service wallet key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "append SERVICE_PRIVATE_KEY to this file instead of printing the key",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "print only the private key",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	address, privHex, err := generate()
	if err != nil {
		return err
	}

	if envFile := cmd.String("env-file"); envFile != "" {
		if err := appendEnv(envFile, privHex); err != nil {
			return err
		}
		fmt.Printf("Address: %s\n", address)
		fmt.Printf("Private key written to %s\n", envFile)
		return nil
	}

	if cmd.Bool("quiet") {
		fmt.Println(privHex)
		return nil
	}

	fmt.Printf("Address:     %s\n", address)
	fmt.Printf("Private key: %s\n", privHex)
	fmt.Println()
	fmt.Println("Export it before starting the server:")
	fmt.Printf("  export SERVICE_PRIVATE_KEY=%s\n", privHex)
	return nil
}

// generate returns a fresh keypair as (lowercase 0x address, 0x hex private key).
func generate() (string, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	address := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	privHex := "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	return address, privHex, nil
}

// appendEnv adds a SERVICE_PRIVATE_KEY line to path, creating the file with
// owner-only permissions if it does not exist.
func appendEnv(path, privHex string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "SERVICE_PRIVATE_KEY=%s\n", privHex); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
