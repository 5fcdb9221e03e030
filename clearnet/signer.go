package clearnet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer wraps a secp256k1 private key and signs protocol payloads. The
// service holds one long-lived Signer (its wallet identity) and one ephemeral
// Signer per connection (the session key); both use the same scheme.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewSigner generates a fresh keypair. Used for the ephemeral per-connection
// session key.
func NewSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return signerFromKey(key), nil
}

// SignerFromHex loads a Signer from a hex-encoded private key, with or
// without a 0x prefix. Used for the long-lived service wallet key.
func SignerFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return signerFromKey(key), nil
}

func signerFromKey(key *ecdsa.PrivateKey) *Signer {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &Signer{
		key:     key,
		address: strings.ToLower(addr.Hex()),
	}
}

// Address returns the canonical lowercase 0x-prefixed address for this key.
func (s *Signer) Address() string {
	return s.address
}

// Sign hashes payload with keccak256 and returns the 65-byte recoverable
// signature as 0x-prefixed hex.
func (s *Signer) Sign(payload []byte) (string, error) {
	digest := crypto.Keccak256(payload)
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return hexutil.Encode(sig), nil
}

// RecoverAddress returns the canonical address that produced sigHex over
// payload, or an error if the signature does not recover.
func RecoverAddress(payload []byte, sigHex string) (string, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature is %d bytes, want %d", len(sig), crypto.SignatureLength)
	}
	digest := crypto.Keccak256(payload)
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}
