package bridge

import "testing"

func TestNewUsesEnvBaseURIWhenNoneProvided(t *testing.T) {
	const want = "https://staging.api.storj.io"
	t.Setenv(envBaseURI, want)

	c, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURI() != want {
		t.Fatalf("BaseURI() = %q, want %q (from %s)", c.BaseURI(), want, envBaseURI)
	}
}

func TestNewPrefersExplicitBaseURIOverEnv(t *testing.T) {
	t.Setenv(envBaseURI, "https://staging.api.storj.io")
	const want = "https://api.example.com"

	c, err := New(Options{BaseURI: want})
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURI() != want {
		t.Fatalf("BaseURI() = %q, want %q", c.BaseURI(), want)
	}
}

func TestNewFailsWithNoBaseURIConfigured(t *testing.T) {
	t.Setenv(envBaseURI, "")
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected an error when neither BaseURI nor STORJ_BRIDGE is set")
	}
}

func TestHashPasswordMatchesKnownVector(t *testing.T) {
	// known vector: SHA256("password") hex-encoded.
	const want = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got := hashPassword("password"); got != want {
		t.Fatalf("hashPassword(\"password\") = %s, want %s", got, want)
	}
}
