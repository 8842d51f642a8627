package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// PageLoader loads a URL and returns the rendered document HTML.
type PageLoader interface {
	Navigate(ctx context.Context, url string) (string, error)
}

// NavigatorConfig controls browser behavior and the retry state machine.
type NavigatorConfig struct {
	Headless          bool
	UserAgent         string
	PageLoadTimeout   time.Duration
	NavigationTimeout time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

func (c *NavigatorConfig) applyDefaults() {
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = 10 * time.Second
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
}

// Navigator implements PageLoader with chromedp. Each Navigate call
// runs in a fresh tab context off a shared exec allocator, so crawls
// never share cookies or viewport state.
type Navigator struct {
	cfg         NavigatorConfig
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger

	// load performs one attempt and returns the rendered HTML plus the
	// main-document status. Swappable so the retry machine is testable
	// without a browser.
	load func(ctx context.Context, url string) (string, int, error)
}

// NewNavigator starts a browser allocator with the given config.
func NewNavigator(cfg NavigatorConfig, logger *zap.Logger) *Navigator {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	n := &Navigator{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}
	n.load = n.loadChromedp
	return n
}

// Close shuts the browser allocator down.
func (n *Navigator) Close() {
	n.allocCancel()
}

// Markers that mean the target renders an error page with a 200.
var notFoundMarkers = []string{
	"page not found",
	"doesn't exist",
	"isn't available",
}

// Navigate loads the URL, retrying transient failures up to the
// attempt budget with a fixed delay between attempts. Terminal
// outcomes surface as ErrNotFound or ErrExhaustedRetries.
func (n *Navigator) Navigate(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= n.cfg.RetryAttempts; attempt++ {
		n.logger.Debug("navigating",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("budget", n.cfg.RetryAttempts),
		)
		html, status, err := n.load(ctx, url)
		switch {
		case err == nil && status == http.StatusNotFound:
			return "", fmt.Errorf("%w: %s returned 404", ErrNotFound, url)
		case err == nil && status >= 400:
			lastErr = fmt.Errorf("http status %d from %s", status, url)
		case err == nil:
			if containsNotFoundMarker(html) {
				return "", fmt.Errorf("%w: %s served a not-found page", ErrNotFound, url)
			}
			return html, nil
		case ctx.Err() != nil:
			return "", fmt.Errorf("navigation canceled: %w", ctx.Err())
		default:
			// Timeouts and other load failures are transient.
			lastErr = err
		}
		n.logger.Warn("navigation attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		if attempt < n.cfg.RetryAttempts {
			if err := sleepContext(ctx, n.cfg.RetryDelay); err != nil {
				return "", fmt.Errorf("navigation canceled: %w", err)
			}
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, n.cfg.RetryAttempts, lastErr)
}

func (n *Navigator) loadChromedp(ctx context.Context, url string) (string, int, error) {
	taskCtx, taskCancel := chromedp.NewContext(n.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, n.cfg.NavigationTimeout)
	defer cancel()

	// Abort the tab when the caller's context finishes first.
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var html string
	actions := []chromedp.Action{
		n.networkSetupAction(),
		chromedp.Navigate(url),
		n.waitBodyAction(),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", 0, fmt.Errorf("navigation timed out after %s: %w", n.cfg.NavigationTimeout, err)
		}
		return "", 0, fmt.Errorf("chromedp run: %w", err)
	}
	return html, meta.status(), nil
}

func (n *Navigator) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if n.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(n.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// waitBodyAction bounds the wait for the document body by the
// page-load timeout, separately from the whole-navigation timeout.
func (n *Navigator) waitBodyAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		loadCtx, cancel := context.WithTimeout(ctx, n.cfg.PageLoadTimeout)
		defer cancel()
		if err := chromedp.WaitReady("body", chromedp.ByQuery).Do(loadCtx); err != nil {
			return fmt.Errorf("wait for body: %w", err)
		}
		return nil
	})
}

func containsNotFoundMarker(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// responseMeta records the status of the main document response from
// CDP network events; sub-resource responses are ignored.
type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.statusCode == 0 {
		return http.StatusOK
	}
	return m.statusCode
}
