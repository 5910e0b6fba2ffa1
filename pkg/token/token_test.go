package token

import (
	stderrors "errors"
	"testing"
	"time"

	"Attendify/pkg/errors"
)

func TestTokenPairRoundTrip(t *testing.T) {
	g, err := New("test-secret", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pair, err := g.GenerateTokenPair("7")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pair.ExpiresIn != 900 || pair.AccessToken == pair.RefreshToken {
		t.Fatalf("pair = %+v", pair)
	}

	uid, err := g.ValidateRefreshToken(pair.RefreshToken)
	if err != nil || uid != "7" {
		t.Fatalf("refresh = %q, %v", uid, err)
	}
	if _, err := g.ValidateRefreshToken(pair.AccessToken); !stderrors.Is(err, errors.ErrInvalidTokenType) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	other, _ := New("other-secret", time.Minute, time.Hour)
	if _, err := other.ValidateRefreshToken(pair.RefreshToken); err == nil {
		t.Fatalf("token signed with another secret must fail")
	}
}

func TestNilGenerator(t *testing.T) {
	var g *Generator
	if _, err := g.GenerateTokenPair("7"); !stderrors.Is(err, errors.ErrTokenGeneratorNotInitialized) {
		t.Fatalf("err = %v", err)
	}
}
