package mcpserver

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServerAsync(t *testing.T) {
	handler, err := HTTPHandler(newTestDispatcher(t), Options{}, "")
	require.NoError(t, err)

	listener, cancel, done, err := RunServerAsync("127.0.0.1:0", handler)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", listener.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(fmt.Sprintf("http://%s/healthz", listener.Addr()))
	assert.Error(t, err)
}

func TestRunServerAsyncBadAddress(t *testing.T) {
	_, cancel, _, err := RunServerAsync("256.0.0.1:99999", http.NotFoundHandler())
	assert.Error(t, err)
	cancel()
}
