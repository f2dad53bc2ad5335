package integration_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeper/playground/internal/infrastructure/config"
	"github.com/codeper/playground/internal/infrastructure/logging"
	"github.com/codeper/playground/internal/infrastructure/server"
	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/preview/sandbox"
)

// hostPage embeds the live sandbox like the editor does: it attaches as the
// preview, loads each mounted handle into the iframe and bridges the iframe's
// console messages to the stream.
const hostPage = `<!DOCTYPE html>
<html><body>
<iframe id="preview" sandbox="allow-scripts allow-modals"></iframe>
<script>
window.__messages = [];
window.__handle = "";
const frame = document.getElementById("preview");
const stream = new WebSocket("ws://" + location.host + "/stream");
function load(handle) {
  if (!handle || handle === window.__handle) return;
  window.__handle = handle;
  frame.src = "/sandbox/" + handle;
}
stream.addEventListener("open", () => stream.send(JSON.stringify({type: "attach"})));
stream.addEventListener("message", (event) => {
  const msg = JSON.parse(event.data);
  if ((msg.type === "ack" && msg.request === "attach") || msg.type === "mounted") load(msg.handle);
});
window.addEventListener("message", (event) => {
  if (event.source !== frame.contentWindow) return;
  window.__messages.push(event.data);
  stream.send(JSON.stringify(Object.assign({}, event.data, {handle: window.__handle})));
});
</script>
</body></html>`

func requireBrowser(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if os.Getenv("PLAYGROUND_BROWSER_TESTS") != "1" {
		t.Skip("set PLAYGROUND_BROWSER_TESTS=1 to run browser tests")
	}
}

func newChromedpContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, 30*time.Second)
	return ctx, func() {
		timeoutCancel()
		cancel()
		allocCancel()
	}
}

func newPlayground(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Ephemeral = true
	cfg.RateLimit.Enabled = false

	srv, err := server.NewServer(cfg, server.Options{Logger: logging.NewNop()})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("/host", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, hostPage)
	})
	mux.Handle("/", srv.Handler())

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

// poll evaluates expr until it is true or the deadline passes.
func poll(expr string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			var ok bool
			if err := chromedp.Evaluate(expr, &ok).Do(ctx); err != nil {
				return err
			}
			if ok {
				return nil
			}
			time.Sleep(50 * time.Millisecond)
		}
		return fmt.Errorf("timed out waiting for %s", expr)
	}
}

func TestSandboxRelaysConsoleToHost(t *testing.T) {
	requireBrowser(t)
	srv, ts := newPlayground(t)
	ctrl := srv.Workspace()

	ctx, cancel := newChromedpContext(t)
	defer cancel()

	require.NoError(t, chromedp.Run(ctx,
		chromedp.Navigate(ts.URL+"/host"),
		poll(`window.__handle !== ""`),
	))
	assert.Equal(t, relay.OriginBridge, ctrl.Status().Origin)

	ctrl.SetJS(`console.log("from browser"); console.warn({a: 1}); throw new Error("boom");`)
	require.True(t, ctrl.Save())
	handle := ctrl.Status().Handle
	require.Eventually(t, func() bool {
		return srv.Host().Current().Report().Result == sandbox.ResultSkipped
	}, 5*time.Second, 10*time.Millisecond, "the preview runs the document, not the host")

	require.NoError(t, chromedp.Run(ctx,
		poll(fmt.Sprintf(`window.__handle === %q && window.__messages.length >= 3`, handle)),
	))

	require.Eventually(t, func() bool { return len(ctrl.Logs()) >= 3 }, 10*time.Second, 50*time.Millisecond)
	n := 0
	for _, line := range ctrl.Log().Lines() {
		if line == "> from browser" {
			n++
		}
	}
	assert.Equal(t, 1, n, "each execution is logged once")

	lines := strings.Join(ctrl.Log().Lines(), "\n")
	assert.Contains(t, lines, "> Warning: {\n  \"a\": 1\n}")
	assert.Contains(t, lines, "> Error: boom")
}

func TestSandboxHasOpaqueOrigin(t *testing.T) {
	requireBrowser(t)
	srv, ts := newPlayground(t)

	ctx, cancel := newChromedpContext(t)
	defer cancel()

	var storage, origin string
	err := chromedp.Run(ctx,
		chromedp.Navigate(ts.URL+"/sandbox/"+srv.Workspace().Status().Handle),
		chromedp.Evaluate(`(() => { try { localStorage.length; return "accessible"; } catch (e) { return e.name; } })()`, &storage),
		chromedp.Evaluate(`self.origin`, &origin),
	)
	require.NoError(t, err)

	assert.Equal(t, "SecurityError", storage)
	assert.Equal(t, "null", origin)
}
