package tui

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// eventServer is the subset of eventbus.Bus used by ServeWeb, kept as
// an interface so this package does not import eventbus for anything
// beyond its HTTP handler.
type eventServer interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

const webIndexPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>claodex status</title>
  <style>
    body { background: #1e1e2e; color: #cdd6f4; font-family: ui-monospace, monospace; margin: 2rem; }
    h1 { color: #89b4fa; }
    #log { white-space: pre-wrap; line-height: 1.4; }
    .A { color: #89b4fa; }
    .B { color: #fab387; }
    .user { color: #f9e2af; }
  </style>
</head>
<body>
  <h1>claodex</h1>
  <div id="log"></div>
  <script>
    const log = document.getElementById('log');
    const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    const ws = new WebSocket(proto + '//' + location.host + '/ws');
    ws.onmessage = (ev) => {
      const line = document.createElement('div');
      try {
        const e = JSON.parse(ev.data);
        line.className = e.agent || '';
        line.textContent = '[' + e.time + '] ' + e.kind + ' ' + e.message;
      } catch {
        line.textContent = ev.data;
      }
      log.appendChild(line);
      window.scrollTo(0, document.body.scrollHeight);
    };
  </script>
</body>
</html>`

// ServeWeb starts a localhost HTTP server exposing a read-only status
// page at "/" and the live event feed (bus.ServeHTTP, a websocket
// upgrade) at "/ws". It returns the URL immediately; the server runs
// in a background goroutine for the lifetime of the process.
func ServeWeb(bus eventServer, port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("binding --web port %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(webIndexPage))
	})
	mux.HandleFunc("/ws", bus.ServeHTTP)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = srv.Serve(ln)
	}()

	return fmt.Sprintf("http://%s/", ln.Addr().String()), nil
}
