package digest_test

import (
	"testing"

	"github.com/nydusgo/rafs/pkg/digest"
)

func TestSumAndVerify(t *testing.T) {
	data := []byte("the quick brown fox")
	for _, alg := range []digest.Algorithm{digest.SHA256, digest.XXH64} {
		sum := digest.Sum(alg, data)
		if !digest.Verify(alg, data, sum) {
			t.Fatalf("%s: Verify failed for matching data", alg)
		}
		corrupted := append([]byte(nil), data...)
		corrupted[0] ^= 0xFF
		if digest.Verify(alg, corrupted, sum) {
			t.Fatalf("%s: Verify should fail for corrupted data", alg)
		}
	}
}

func TestAlgorithmValid(t *testing.T) {
	if !digest.SHA256.Valid() || !digest.XXH64.Valid() {
		t.Fatal("expected SHA256 and XXH64 to be valid")
	}
	if digest.Algorithm("bogus").Valid() {
		t.Fatal("expected unknown algorithm to be invalid")
	}
}

func TestNewHashPanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected NewHash to panic on invalid algorithm")
		}
	}()
	digest.Algorithm("bogus").NewHash()
}
