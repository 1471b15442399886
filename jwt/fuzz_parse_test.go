package jwt

import (
	"testing"
	"time"
)

// FuzzParseAccess feeds arbitrary strings to the verifier.
// Malformed input must be rejected without panics.
func FuzzParseAccess(f *testing.F) {
	mgr, err := NewManager(Config{
		AccessTTL:     5 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, err := mgr.CreateAccess(1)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiIxIn0.")

	f.Fuzz(func(t *testing.T, input string) {
		uid, err := mgr.ParseAccess(input)
		if err == nil && uid <= 0 {
			t.Fatalf("accepted token with uid %d", uid)
		}
	})
}
