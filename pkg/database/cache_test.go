package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"cohort-retention/pkg/models"
)

type countingLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (l *countingLoader) LoadOrderLines(context.Context) ([]models.RawOrderLine, error) {
	n := l.calls.Add(1)
	if l.fail.Load() {
		return nil, errors.New("source down")
	}
	rows := []models.RawOrderLine{
		{OrderID: "1", UserID: "A", CreatedAt: "2024-01-01", Status: "Complete"},
		{OrderID: "2", UserID: "B", CreatedAt: "garbage", Status: "Complete"},
	}
	if n > 1 {
		rows = append(rows, models.RawOrderLine{OrderID: "3", UserID: "C", CreatedAt: "2024-01-02", Status: "Complete"})
	}
	return rows, nil
}

func TestCache_GetLoadsOnce(t *testing.T) {
	src := &countingLoader{}
	c := NewCache(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background()); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
	tbl, _ := c.Get(context.Background())
	if len(tbl.Lines) != 1 || tbl.Diagnostics.Dropped != 1 {
		t.Fatalf("table: %+v", tbl)
	}
}

func TestCache_Refresh(t *testing.T) {
	src := &countingLoader{}
	c := NewCache(src)
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	tbl, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(tbl.Lines) != 2 {
		t.Fatalf("refresh must reload, got %d lines", len(tbl.Lines))
	}
	if got, _ := c.Get(context.Background()); got != tbl {
		t.Fatal("get must return the refreshed table")
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	src := &countingLoader{}
	src.fail.Store(true)
	c := NewCache(src)

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	src.fail.Store(false)
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	src := &countingLoader{}
	c := NewCache(src)
	before, _ := c.Get(context.Background())

	src.fail.Store(true)
	if _, err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if after, _ := c.Get(context.Background()); after != before {
		t.Fatal("failed refresh replaced the snapshot")
	}
}
