package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for a command writing while the test
// reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// writeTestConfig writes a config using a file blob store under a temp
// directory. withBus enables the directory bus.
func writeTestConfig(t *testing.T, withBus, remoteReload bool) string {
	t.Helper()
	dir := t.TempDir()

	busBlock := "bus:\n  backend: none\n"
	if withBus {
		busBlock = fmt.Sprintf("bus:\n  backend: dir\n  path: %s\n", filepath.Join(dir, "bus"))
	}
	content := fmt.Sprintf("blob:\n  backend: file\n  path: %s\n%sremote_reload: %v\nlog_level: warn\n",
		filepath.Join(dir, "data"), busBlock, remoteReload)

	path := filepath.Join(dir, "tabsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes one command against the config at cfgPath.
func runCLI(ctx context.Context, cfgPath string, stdout, stderr *syncBuffer, args ...string) error {
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	return cmd.ExecuteContext(ctx)
}

// mustRun executes a command that must succeed and returns its stdout.
func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	var stdout, stderr syncBuffer
	err := runCLI(context.Background(), cfgPath, &stdout, &stderr, args...)
	require.NoError(t, err, "tabsync %v\nstderr: %s", args, stderr.String())
	return stdout.String()
}

// runErr executes a command that must fail and returns the error.
func runErr(t *testing.T, cfgPath string, args ...string) error {
	t.Helper()
	var stdout, stderr syncBuffer
	err := runCLI(context.Background(), cfgPath, &stdout, &stderr, args...)
	require.Error(t, err, "tabsync %v should fail", args)
	return err
}
