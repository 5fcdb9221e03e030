package clearnet

import (
	"strings"
	"testing"

	"github.com/gridduel/server/validate"
)

func TestSignerAddressShape(t *testing.T) {
	s, err := NewSigner()
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if _, err := validate.Address(s.Address()); err != nil {
		t.Errorf("address %q is not canonical: %v", s.Address(), err)
	}
	if s.Address() != strings.ToLower(s.Address()) {
		t.Errorf("address %q is not lowercase", s.Address())
	}
}

func TestSignAndRecover(t *testing.T) {
	s, err := NewSigner()
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	payload := []byte(`[1,"create_app_session",{},1700000000000]`)
	sig, err := s.Sign(payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := validate.Signature(sig); err != nil {
		t.Fatalf("signature shape: %v", err)
	}

	recovered, err := RecoverAddress(payload, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if recovered != s.Address() {
		t.Errorf("recovered %q, want %q", recovered, s.Address())
	}

	// A different payload must not recover to the signer.
	other, err := RecoverAddress([]byte("tampered"), sig)
	if err == nil && other == s.Address() {
		t.Error("tampered payload recovered to the original signer")
	}
}

func TestSignerFromHexRoundTrip(t *testing.T) {
	const key = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

	a, err := SignerFromHex(key)
	if err != nil {
		t.Fatalf("SignerFromHex: %v", err)
	}
	b, err := SignerFromHex(strings.TrimPrefix(key, "0x"))
	if err != nil {
		t.Fatalf("SignerFromHex without prefix: %v", err)
	}
	if a.Address() != b.Address() {
		t.Errorf("prefix handling changed the address: %q vs %q", a.Address(), b.Address())
	}
}

func TestSignerFromHexRejectsGarbage(t *testing.T) {
	if _, err := SignerFromHex("not-a-key"); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestRecoverAddressRejectsMalformed(t *testing.T) {
	if _, err := RecoverAddress([]byte("x"), "0x1234"); err == nil {
		t.Error("expected error for short signature")
	}
	if _, err := RecoverAddress([]byte("x"), "zz"); err == nil {
		t.Error("expected error for non-hex signature")
	}
}
