package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "valid lowercase",
			input: "0xaaaabbbbccccddddeeeeffff0000111122223333",
			want:  "0xaaaabbbbccccddddeeeeffff0000111122223333",
		},
		{
			name:  "mixed case canonicalized",
			input: "0xAAAABBBBCCCCDDDDEEEEFFFF0000111122223333",
			want:  "0xaaaabbbbccccddddeeeeffff0000111122223333",
		},
		{
			name:    "missing prefix",
			input:   "aaaabbbbccccddddeeeeffff0000111122223333",
			wantErr: true,
		},
		{
			name:    "too short",
			input:   "0xaaaabbbb",
			wantErr: true,
		},
		{
			name:    "non-hex",
			input:   "0xzzzzbbbbccccddddeeeeffff0000111122223333",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Address(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Address(%q) expected error, got none", tt.input)
				}
				if !errors.Is(err, ErrAddressMalformed) {
					t.Errorf("expected ErrAddressMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Address(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Address(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSignature(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 65)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: valid},
		{name: "missing prefix", input: strings.Repeat("ab", 65), wantErr: true},
		{name: "wrong length", input: "0x" + strings.Repeat("ab", 64), wantErr: true},
		{name: "too long", input: valid + "ff", wantErr: true},
		{name: "non-hex body", input: "0x" + strings.Repeat("zz", 65), wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Signature(tt.input)
			if tt.wantErr && !errors.Is(err, ErrSignatureMalformed) {
				t.Errorf("Signature(%q) = %v, want ErrSignatureMalformed", tt.input, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Signature(%q) unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestNonEmpty(t *testing.T) {
	if err := NonEmpty(map[string]string{"roomId": "r1", "address": "0xabc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := NonEmpty(map[string]string{"roomId": "  "})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
}
