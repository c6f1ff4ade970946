package mcp

import (
	"context"
	"testing"
	"time"
)

func TestWatchParent_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	WatchParent(ctx, func() { called <- struct{}{} })
	cancel()

	time.Sleep(50 * time.Millisecond)
	select {
	case <-called:
		t.Fatal("cancelFn must not be called while the parent is alive")
	default:
	}
}

func TestWatchParent_ParentAlive(t *testing.T) {
	old := parentPollInterval
	parentPollInterval = 5 * time.Millisecond
	t.Cleanup(func() { parentPollInterval = old })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	called := make(chan struct{}, 1)
	WatchParent(ctx, func() { called <- struct{}{} })

	select {
	case <-called:
		t.Fatal("cancelFn called although the parent PID is unchanged")
	case <-time.After(50 * time.Millisecond):
	}
}
