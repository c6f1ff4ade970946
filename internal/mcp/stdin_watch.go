package mcp

import (
	"context"
	"os"
	"time"

	"petrovisor/internal/logging"
)

// parentPollInterval is how often WatchParent checks the parent PID.
var parentPollInterval = 2 * time.Second

// WatchParent monitors for parent process death in a background goroutine.
// When the parent PID changes (the MCP host exited or restarted), it calls
// cancelFn so the stdio server shuts down instead of lingering.
//
// It must not read from stdin: the SDK's StdioTransport owns it.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		ticker := time.NewTicker(parentPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logging.New("mcp").Warn("parent process exited, shutting down", "parent_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
