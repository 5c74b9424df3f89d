package encoding

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewCodec(t *testing.T) {
	// Should work with any key length (derives a 32-byte key)
	if _, err := NewCodec([]byte("short")); err != nil {
		t.Fatalf("NewCodec with short key failed: %v", err)
	}
	if _, err := NewCodec([]byte("this-is-a-32-byte-key-for-aes!!!")); err != nil {
		t.Fatalf("NewCodec with 32-byte key failed: %v", err)
	}
	if _, err := NewCodec(nil); err == nil {
		t.Error("NewCodec(nil) should fail")
	}
}

func stateFixture() map[string]map[string]any {
	return map[string]map[string]any{
		"counter": {"count": int64(5), "label": "clicks"},
		"panel":   {"open": true, "user": map[string]any{"name": "Ada"}},
	}
}

func TestSignedRoundTrip(t *testing.T) {
	codec, err := NewCodec([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	token, err := codec.Encode(stateFixture(), false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(token, ".") {
		t.Errorf("signed token should contain a '.' separator: %q", token)
	}

	var decoded map[string]map[string]any
	if err := codec.Decode(token, false, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(stateFixture(), decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	codec, err := NewCodec([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	token, err := codec.Encode(stateFixture(), true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(token, "counter") {
		t.Error("encrypted token should be opaque")
	}

	var decoded map[string]map[string]any
	if err := codec.Decode(token, true, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(stateFixture(), decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTamperDetection(t *testing.T) {
	codec, err := NewCodec([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	token, err := codec.Encode(stateFixture(), false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Flip a payload byte; the signature must no longer verify.
	tampered := "A" + token[1:]
	var out map[string]map[string]any
	err = codec.Decode(tampered, false, &out)
	if !errors.Is(err, ErrSignatureInvalid) && !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Decode(tampered) = %v, want signature or format error", err)
	}
}

func TestWrongKey(t *testing.T) {
	a, _ := NewCodec([]byte("key-a"))
	b, _ := NewCodec([]byte("key-b"))

	signed, err := a.Encode(stateFixture(), false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var out map[string]map[string]any
	if err := b.Decode(signed, false, &out); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode with wrong key = %v, want ErrSignatureInvalid", err)
	}

	sealed, err := a.Encode(stateFixture(), true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := b.Decode(sealed, true, &out); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Decode with wrong key = %v, want ErrDecryptFailed", err)
	}
}

func TestInvalidFormat(t *testing.T) {
	codec, _ := NewCodec([]byte("test-key"))
	var out map[string]map[string]any

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "bm9zZXA"},
		{"bad base64", "!!!.!!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := codec.Decode(tt.token, false, &out); !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Decode(%q) = %v, want ErrInvalidFormat", tt.token, err)
			}
		})
	}
}
