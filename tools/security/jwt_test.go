package security

import (
	"errors"
	"testing"
	"time"

	errs "FeedNotify/tools/errs"
)

func TestGenerateVerify(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	opts.Issuer = "feednotify"
	tok, exp, err := Generate(opts, "ops", []string{"drain"})
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("exp = %v", exp)
	}
	sub, err := Verify(opts, tok)
	if err != nil || sub != "ops" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	tok, _, _ := Generate(opts, "ops", nil)

	cases := map[string]struct {
		opts  Options
		token string
	}{
		"wrong secret": {DefaultOptions([]byte("other")), tok},
		"wrong alg":    {Options{Secret: []byte("test-secret"), Alg: "HS512"}, tok},
		"garbage":      {opts, "not.a.token"},
		"issuer":       {Options{Secret: []byte("test-secret"), Issuer: "someone"}, tok},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Verify(tc.opts, tc.token); !errors.Is(err, errs.ErrAuth) {
				t.Fatalf("want auth error, got %v", err)
			}
		})
	}

	if _, _, err := Generate(Options{Secret: []byte("x"), Alg: "RS256"}, "ops", nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}
