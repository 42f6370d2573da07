package entropy

import "testing"

func TestCryptoFloatRange(t *testing.T) {
	src := Crypto{}
	for i := 0; i < 10000; i++ {
		v := src.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("value %v outside [0,1)", v)
		}
	}
}

func TestSeededDeterminism(t *testing.T) {
	a := NewSeeded(99)
	b := NewSeeded(99)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("seeded sources diverged at draw %d", i)
		}
	}
}

func TestSeededSeedsDiffer(t *testing.T) {
	a := NewSeeded(1)
	b := NewSeeded(2)
	same := true
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical sequences")
	}
}

func TestPickFallsBackToCrypto(t *testing.T) {
	src := Pick(nil)
	if src.Name() != "crypto/rand" {
		t.Fatalf("nil client picked %q", src.Name())
	}
	if src := Pick(NewClient("")); src.Name() != "crypto/rand" {
		t.Fatalf("empty-key client picked %q", src.Name())
	}
}

func TestClientName(t *testing.T) {
	if NewClient("key").Name() != "random.org" {
		t.Fatal("configured client should name random.org")
	}
	var nilClient *Client
	if nilClient.Name() != "crypto/rand" {
		t.Fatal("nil client should name the fallback")
	}
}
