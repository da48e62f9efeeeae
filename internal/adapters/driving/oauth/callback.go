// Package oauth runs the local redirect listener used by `hrwatch auth login`.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateTTL is how long an issued state value is accepted.
const StateTTL = 5 * time.Minute

// Callback errors.
var (
	ErrStateMismatch = errors.New("oauth: state mismatch")
	ErrStateExpired  = errors.New("oauth: state expired")
	ErrNoCode        = errors.New("oauth: no authorization code received")
	ErrTimeout       = errors.New("oauth: timed out waiting for authorization callback")
)

// NewState returns a fresh random state value.
func NewState() string {
	return uuid.NewString()
}

// CallbackServer handles the authorization redirect.
// It starts a local HTTP server to receive the authorization code.
type CallbackServer struct {
	mu            sync.Mutex
	port          int
	expectedState string
	issuedAt      time.Time
	now           func() time.Time
	codeChan      chan string
	errChan       chan error
	server        *http.Server
	listener      net.Listener
}

// NewCallbackServer creates a callback server expecting state, issued now.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		issuedAt:      time.Now(),
		now:           time.Now,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
	}
}

// Start listens on 127.0.0.1:port. Port 0 picks a free port.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	// Store the actual port (important when port was 0)
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()

	return nil
}

func (s *CallbackServer) fail(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := q.Get("error"); errParam != "" {
		s.fail(fmt.Errorf("oauth: provider returned %s: %s", errParam, q.Get("error_description")))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, resultHTML("Authorization failed", q.Get("error_description")))
		return
	}

	if q.Get("state") != s.expectedState {
		s.fail(ErrStateMismatch)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, resultHTML("Authorization failed", "Invalid state parameter."))
		return
	}

	if s.now().Sub(s.issuedAt) > StateTTL {
		s.fail(ErrStateExpired)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, resultHTML("Authorization failed", "The login link expired. Run `hrwatch auth login` again."))
		return
	}

	code := q.Get("code")
	if code == "" {
		s.fail(ErrNoCode)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, resultHTML("Authorization failed", "No authorization code received."))
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}

	_, _ = fmt.Fprint(w, resultHTML("Authorization successful", "You can close this window and return to the terminal."))
}

// WaitForCode blocks until a code arrives, the callback fails, ctx ends,
// or the state expires.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	remaining := StateTTL - s.now().Sub(s.issuedAt)
	ctx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}

// Stop shuts down the callback server.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	return s.port
}

// RedirectURI returns the redirect URI for this callback server.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", s.port)
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>hrwatch</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; display: flex;
               justify-content: center; align-items: center; height: 100vh; margin: 0; background: #FAFAFA; }
        .box { text-align: center; background: white; padding: 48px 64px; border-radius: 16px;
               border: 1px solid #C7C8CC; }
        h1 { color: #333F50; margin: 0 0 8px 0; font-size: 24px; }
        p { color: #7B8088; margin: 0; }
    </style>
</head>
<body>
    <div class="box">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
