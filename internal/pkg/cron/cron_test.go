package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegister_Validation(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }
	if err := s.Register(Job{Name: "", Interval: time.Second, Fn: noop}); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := s.Register(Job{Name: "a", Interval: 0, Fn: noop}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if err := s.Register(Job{Name: "a", Interval: time.Second, Fn: noop}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register(Job{Name: "a", Interval: time.Second, Fn: noop}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestRunNow_TracksStatus(t *testing.T) {
	s := New(nil)
	fail := true
	_ = s.Register(Job{Name: "backup", Interval: time.Hour, Fn: func(context.Context) error {
		if fail {
			return errors.New("disk full")
		}
		return nil
	}})

	info, _ := s.Get("backup")
	if info.Status != StatusIdle {
		t.Fatalf("expected idle, got %s", info.Status)
	}

	if err := s.RunNow(context.Background(), "backup"); err == nil {
		t.Fatalf("expected job error")
	}
	info, _ = s.Get("backup")
	if info.Status != StatusReject || info.Message != "disk full" || info.LastRunAt == nil {
		t.Fatalf("unexpected state after failure: %+v", info)
	}

	fail = false
	if err := s.RunNow(context.Background(), "backup"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	info, _ = s.Get("backup")
	if info.Status != StatusFulfill || info.Message != "" {
		t.Fatalf("unexpected state after success: %+v", info)
	}

	if err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Fatalf("expected unknown job error")
	}
}

func TestRunNow_SkipsOverlap(t *testing.T) {
	s := New(nil)
	release := make(chan struct{})
	started := make(chan struct{})
	_ = s.Register(Job{Name: "digest", Interval: time.Hour, Fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "digest") }()
	<-started

	if err := s.RunNow(context.Background(), "digest"); !errors.Is(err, ErrJobRunning) {
		t.Fatalf("expected ErrJobRunning, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestStart_RunsOnInterval(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	_ = s.Register(Job{Name: "tick", Interval: 10 * time.Millisecond, Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Wait()

	if runs.Load() < 2 {
		t.Fatalf("expected at least 2 runs, got %d", runs.Load())
	}
	if items := s.List(); len(items) != 1 || items[0].Name != "tick" {
		t.Fatalf("unexpected list %+v", items)
	}
}
