package safe

import (
	"errors"
	"testing"
	"time"

	errs "FeedNotify/tools/errs"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGoRecovers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	done := make(chan struct{})
	Go(zap.New(core), "worker", func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
	deadline := time.Now().Add(time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["goroutine"] != "worker" {
		t.Fatalf("logs = %v", logs.All())
	}
}

func TestCatchReportsPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	run := func() (err error) {
		defer Catch(zap.New(core), "sink", &err)
		panic("sink blew up")
	}
	err := run()
	if !errors.Is(err, errs.ErrInternal) {
		t.Fatalf("err = %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("logs = %v", logs.All())
	}

	ok := func() (err error) {
		defer Catch(zap.NewNop(), "sink", &err)
		return nil
	}
	if err := ok(); err != nil {
		t.Fatalf("no panic but err = %v", err)
	}
}
