package justdial

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"justdial-scraper/utils"
)

// ChromeOptions configures the browser backing a ChromeSession.
type ChromeOptions struct {
	ProfileDir    string
	ChromeBin     string
	UserAgent     string
	Headless      bool
	ActionTimeout time.Duration
}

// ChromeSession is a Session backed by one chromedp tab running with a
// persistent user profile, so a login survives between runs.
type ChromeSession struct {
	logger        *utils.Logger
	actionTimeout time.Duration

	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChromeSession launches the browser. A failure here is a fatal setup
// error for the run.
func NewChromeSession(opts ChromeOptions, logger *utils.Logger) (*ChromeSession, error) {
	profile, err := filepath.Abs(opts.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("session: resolve profile dir: %w", err)
	}
	if err := os.MkdirAll(profile, 0755); err != nil {
		return nil, fmt.Errorf("session: create profile dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserDataDir(profile),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	bin := opts.ChromeBin
	if bin == "" {
		bin = findChromeBinary()
	}
	if bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}
	logger.Info("[session] Using browser binary: %s (profile %s)", valueOr(bin, "chromedp default"), profile)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// The first Run allocates the browser; it must use the tab context
	// itself so later timeouts do not tear the browser down.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("session: start browser: %w", err)
	}

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ChromeSession{
		logger:        logger,
		actionTimeout: timeout,
		tabCtx:        tabCtx,
		cancelTab:     cancelTab,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// Close shuts the browser down.
func (s *ChromeSession) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

// actionContext bounds a single action by the tab, the timeout and the
// caller's ctx. Cancelling the caller does not close the tab.
func actionContext(ctx, tab context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(tab, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.tabCtx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}

	runCtx, cancel := actionContext(ctx, s.tabCtx, s.actionTimeout)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	switch {
	case err == nil:
		return nil
	case s.tabCtx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) Cookies(ctx context.Context) (map[string]string, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out, nil
}

func (s *ChromeSession) Evaluate(ctx context.Context, expression string, res any) error {
	return s.run(ctx, chromedp.Evaluate(expression, res))
}

func (s *ChromeSession) ElementHTML(ctx context.Context, id string) (string, error) {
	quoted, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	expr := fmt.Sprintf(`(function() {
		var el = document.getElementById(%s);
		return el ? el.outerHTML : "";
	})()`, quoted)

	var html string
	if err := s.Evaluate(ctx, expr, &html); err != nil {
		return "", err
	}
	if html == "" {
		return "", ErrElementNotFound
	}
	return html, nil
}

func (s *ChromeSession) ScrollBy(ctx context.Context, pixels int) error {
	return s.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d);", pixels), nil))
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
