package keys

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

func TestSecretToPubkeyToAddress(t *testing.T) {
	e, err := Parse("secret 12345678901234567890")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	pub, err := AsPubkey(e)
	if err != nil {
		t.Fatalf("AsPubkey: %v", err)
	}
	addr, err := AsAddress(e)
	if err != nil {
		t.Fatalf("AsAddress: %v", err)
	}

	addrFromPub, err := AsAddress(pub)
	if err != nil {
		t.Fatalf("AsAddress(pub): %v", err)
	}
	if addr.Hash160 != addrFromPub.Hash160 {
		t.Error("address derived from secret should match address derived from its pubkey")
	}
}

func TestAsAddressSucceedsForSecret(t *testing.T) {
	e, err := Parse("secret 42")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := AsAddress(e); err != nil {
		t.Fatalf("AsAddress should succeed for a secret: %v", err)
	}
}

func TestWIFIncompatibleWithPubkeyOnly(t *testing.T) {
	pub, err := Parse("pubkey `03cc45122542e88a92ea2e4266424a22e83292ff6a2bc17cdd7110f6d10fe32523`")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := AsWIF(pub); err == nil {
		t.Fatal("expected incompatible-kind converting a bare pubkey to WIF")
	}
}

func TestHDDeriveNonHardened(t *testing.T) {
	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		t.Fatalf("GenerateSeed: %v", err)
	}
	master, err := hdkeychain.NewMaster(seed, Main.Params())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}

	secretExpr := HDSecret{Key: master}
	child, err := Derive(secretExpr, []uint32{0})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if _, ok := child.(HDSecret); !ok {
		t.Fatalf("expected HDSecret, got %T", child)
	}

	pubExpr, err := ToPublic(secretExpr)
	if err != nil {
		t.Fatalf("ToPublic: %v", err)
	}
	pubChild, err := Derive(pubExpr, []uint32{0})
	if err != nil {
		t.Fatalf("Derive on pubkey: %v", err)
	}

	wantPub, err := AsPubkey(child)
	if err != nil {
		t.Fatalf("AsPubkey(child): %v", err)
	}
	gotPub, err := AsPubkey(pubChild)
	if err != nil {
		t.Fatalf("AsPubkey(pubChild): %v", err)
	}
	if string(wantPub.Serialized) != string(gotPub.Serialized) {
		t.Error("deriving then converting to public should match converting to public then deriving")
	}
}

func TestHDDeriveHardenedRequiresSecret(t *testing.T) {
	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		t.Fatalf("GenerateSeed: %v", err)
	}
	master, err := hdkeychain.NewMaster(seed, Main.Params())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	pub, err := master.Neuter()
	if err != nil {
		t.Fatalf("Neuter: %v", err)
	}

	_, err = Derive(HDPubkey{Key: pub}, []uint32{hdkeychain.HardenedKeyStart})
	if err == nil {
		t.Fatal("expected hardened-requires-secret error")
	}
}

func TestApplyMatchesDerive(t *testing.T) {
	seed, _ := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	master, _ := hdkeychain.NewMaster(seed, Main.Params())
	e := HDSecret{Key: master}

	a, err := Apply(e, 5)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := Derive(e, []uint32{5})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	aPub, _ := AsPubkey(a)
	bPub, _ := AsPubkey(b)
	if string(aPub.Serialized) != string(bPub.Serialized) {
		t.Error("Apply(e, i) should equal Derive(e, [i])")
	}
}
