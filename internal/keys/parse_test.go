package keys

import (
	"testing"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
)

func TestParseSecret(t *testing.T) {
	e, err := Parse("secret 12345")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s, ok := e.(Secret)
	if !ok {
		t.Fatalf("expected Secret, got %T", e)
	}
	if s.Kind() != KindSecret {
		t.Errorf("Kind() = %v, want KindSecret", s.Kind())
	}
}

func TestParsePubkey(t *testing.T) {
	text := "pubkey `03cc45122542e88a92ea2e4266424a22e83292ff6a2bc17cdd7110f6d10fe32523`"
	e, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := e.(Pubkey); !ok {
		t.Fatalf("expected Pubkey, got %T", e)
	}
}

func TestParseWIFRoundTrip(t *testing.T) {
	// A well-known BIP-32 test-vector-adjacent WIF used purely as syntax
	// fixture (compressed, mainnet).
	text := `WIF "L1LokMeMLVbnapboYCpeobZ67FkFBXKhYLMPs9mj7X4vk58AdCZQ"`
	e, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w, ok := e.(WIF)
	if !ok {
		t.Fatalf("expected WIF, got %T", e)
	}
	if !w.Compressed {
		t.Error("expected compressed WIF")
	}
	if w.Net != Main {
		t.Error("expected mainnet WIF")
	}

	rendered, err := Render(e, KindWIF)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered != text {
		t.Errorf("Render round-trip = %q, want %q", rendered, text)
	}
}

func TestParseAddressDecodedForm(t *testing.T) {
	e, err := Parse("address [`89abcdefabbaabbaabbaabbaabbaabbaabbaabba`, net.Main]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, ok := e.(Address)
	if !ok {
		t.Fatalf("expected Address, got %T", e)
	}
	if a.Net != Main {
		t.Error("expected mainnet address")
	}
}

func TestParseInvalidSyntax(t *testing.T) {
	_, err := Parse("not a key expression !!!")
	if err == nil {
		t.Fatal("expected an error")
	}
	kind, ok := cosmoserr.KindOf(err)
	if !ok || kind != cosmoserr.InvalidSyntax {
		t.Errorf("KindOf = %v, %v; want invalid-syntax, true", kind, ok)
	}
}

func TestParseTrailingGarbage(t *testing.T) {
	_, err := Parse("secret 1 garbage")
	if err == nil {
		t.Fatal("expected an error for trailing input")
	}
}

func TestParseRenderRoundTripSecret(t *testing.T) {
	for _, text := range []string{"secret 1", "secret 999999999999"} {
		e, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		got, err := Render(e, KindSecret)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if got != text {
			t.Errorf("round trip %q -> %q", text, got)
		}
	}
}
