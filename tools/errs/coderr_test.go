package errs

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCodeErrorMatching(t *testing.T) {
	err := ErrNotFound.WrapMsg("user", "id", "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is(%v, ErrNotFound) = false", err)
	}
	if errors.Is(err, ErrStore) {
		t.Fatal("NotFound matched ErrStore")
	}
	if Code(err) != NotFoundError {
		t.Fatalf("code = %d", Code(err))
	}
	if !strings.Contains(err.Error(), "id=u1") {
		t.Fatalf("detail missing: %s", err)
	}
}

func TestWrapErrKeepsCause(t *testing.T) {
	err := ErrStore.WrapErr(io.EOF, "redis", "op", "GET")
	if !errors.Is(err, io.EOF) || !errors.Is(err, ErrStore) {
		t.Fatalf("chain lost: %v", err)
	}
	if ErrStore.WrapErr(nil, "x") != nil {
		t.Fatal("nil cause should stay nil")
	}
	if got := Unpack(err).Detail; got != "redis, op=GET: EOF" {
		t.Fatalf("detail = %q", got)
	}
}

func TestUnpackPlainError(t *testing.T) {
	ce := Unpack(errors.New("boom"))
	if ce.Code != ServerInternalError || ce.Detail != "boom" {
		t.Fatalf("got %+v", ce)
	}
	if Code(ErrPanic("p")) != ServerInternalError {
		t.Fatal("panic code")
	}
	if ErrPanic(nil) != nil {
		t.Fatal("nil panic should be nil")
	}
}
