package cmd

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written by server goroutines while the test reads it.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// executeWithOutput runs the root command with args. Command output goes to
// out, log output and cobra errors to logOut.
func executeWithOutput(ctx context.Context, in io.Reader, out, logOut io.Writer, args ...string) error {
	log.SetOutput(logOut)
	defer log.SetOutput(os.Stderr)

	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(logOut)
	defer func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	// cobra hands the first context to subcommands and keeps it
	for _, sub := range rootCmd.Commands() {
		sub.SetContext(ctx)
	}

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func CommandRunner(args ...string) (string, error) {
	var b syncBuffer
	err := executeWithOutput(context.Background(), strings.NewReader(""), &b, &b, args...)
	return b.String(), err
}

// serveArgs resets every serve flag, since flag values outlive a test.
func serveArgs(overrides ...string) []string {
	args := []string{
		"--transport=stdio",
		"--runtime=go-sdk",
		"--name=calculator",
		"--addr=127.0.0.1:0",
		"--endpoint=/mcp",
		"--health-addr=",
		"--otlp-endpoint=",
		"--trace-sample-ratio=1",
	}
	return append(args, overrides...)
}

func callArgsFor(tool string, overrides ...string) []string {
	args := []string{"call", tool, "--a=0", "--b=0", "--url=", "--args="}
	return append(args, overrides...)
}

// runSubCommand starts a long running command, waits, then cancels it and
// checks its output.
func runSubCommand(t *testing.T, args []string, wait time.Duration, outputAssertions []string) {
	assert := assert.New(t)

	cancelableCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var b syncBuffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := executeWithOutput(cancelableCtx, strings.NewReader(""), &b, &b, args...)
		assert.NoError(err)
	}()

	// we need to wait for the command to start ...
	time.Sleep(wait)
	// ... then cancel it
	cancel()
	// don't exit until it has called our wg.Done()
	wg.Wait()

	lowerOutput := strings.ToLower(b.String())
	for _, oa := range outputAssertions {
		assert.Contains(lowerOutput, strings.ToLower(oa))
	}
}

// waitForLog polls logs until re matches and returns its first group.
func waitForLog(t *testing.T, logs *syncBuffer, re *regexp.Regexp) string {
	t.Helper()
	var match []string
	require.Eventually(t, func() bool {
		match = re.FindStringSubmatch(logs.String())
		return match != nil
	}, 5*time.Second, 20*time.Millisecond, "no log line matching %s in:\n%s", re, logs)
	return match[1]
}
