// Package fetch drives the authenticated headless browser used for every
// request the pipeline makes.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
)

// Config controls browser behavior.
type Config struct {
	UserAgent         string
	Locale            string
	TimezoneID        string
	Referer           string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ScrollBottomDelay time.Duration
	ScrollTopDelay    time.Duration
	LoginURLPatterns  []string
}

func (c *Config) applyDefaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.ScrollBottomDelay <= 0 {
		c.ScrollBottomDelay = 3 * time.Second
	}
	if c.ScrollTopDelay <= 0 {
		c.ScrollTopDelay = time.Second
	}
	if len(c.LoginURLPatterns) == 0 {
		c.LoginURLPatterns = []string{"login.sina.com.cn", "passport.weibo.com"}
	}
}

// Browser implements harvest.Fetcher on top of a single shared chromedp
// browser context. Credentials are injected once at construction; the
// context is read-only afterwards and each Fetch runs in its own tab.
type Browser struct {
	cfg           Config
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	authenticated bool

	// run executes CDP actions; swapped out in tests.
	run func(ctx context.Context, actions ...chromedp.Action) error
}

// New launches headless Chrome, warms up the shared browser context, and
// injects the captured session cookies when a state blob is provided.
// A nil state is a degraded but valid run.
func New(cfg Config, state *StorageState, logger *zap.Logger) (*Browser, error) {
	cfg.applyDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	b := &Browser{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		run:           chromedp.Run,
	}

	if state == nil {
		logger.Warn("no session state loaded, running unauthenticated with degraded capability")
		return b, nil
	}

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetCookies(state.CookieParams()),
	); err != nil {
		b.Close()
		return nil, fmt.Errorf("inject session cookies: %w", err)
	}
	b.authenticated = true
	logger.Info("session state applied",
		zap.Int("cookies", len(state.Cookies)),
		zap.Int("storage_origins", len(state.Origins)),
	)
	if len(state.Origins) > 0 {
		logger.Debug("origin storage not injected, cookie auth only")
	}
	return b, nil
}

// Authenticated reports whether a session blob was applied at startup.
func (b *Browser) Authenticated() bool {
	return b.authenticated
}

// Close tears down the browser and allocator contexts.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// Fetch navigates one tab through the request lifecycle and returns the
// rendered payload. The tab is closed on every path.
func (b *Browser) Fetch(ctx context.Context, request harvest.FetchRequest) (harvest.FetchResult, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancelRun()

	stopForward := forwardCancel(ctx, cancelRun)
	defer stopForward()

	start := time.Now()

	var finalURL string
	if err := b.run(runCtx, b.navigateActions(request, &finalURL)...); err != nil {
		return harvest.FetchResult{Duration: time.Since(start)}, b.classify(err, runCtx)
	}

	// Auth loss must be detected before any content is read.
	for _, pattern := range b.cfg.LoginURLPatterns {
		if strings.Contains(finalURL, pattern) {
			return harvest.FetchResult{Duration: time.Since(start)},
				fmt.Errorf("redirected to %s: %w", finalURL, harvest.ErrAuthExpired)
		}
	}

	// Lazy-load scrolling is best effort: the primary content rendered
	// during navigation, so a scroll hiccup must not discard the page.
	if request.Mode == harvest.ModeDetailPage {
		if err := b.run(runCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(b.cfg.ScrollBottomDelay),
			chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
			chromedp.Sleep(b.cfg.ScrollTopDelay),
		); err != nil {
			b.logger.Warn("detail scroll sequence failed, reading settled content",
				zap.String("url", request.URL),
				zap.Error(err),
			)
		}
	}

	var html string
	if err := b.run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return harvest.FetchResult{Duration: time.Since(start)}, b.classify(err, runCtx)
	}

	return harvest.FetchResult{
		Body:     html,
		FinalURL: finalURL,
		Duration: time.Since(start),
	}, nil
}

func (b *Browser) navigateActions(request harvest.FetchRequest, finalURL *string) []chromedp.Action {
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.EmulateViewport(1280, 800),
	}
	if b.cfg.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(b.cfg.UserAgent))
	}
	if b.cfg.Locale != "" {
		actions = append(actions, emulation.SetLocaleOverride().WithLocale(b.cfg.Locale))
	}
	if b.cfg.TimezoneID != "" {
		actions = append(actions, emulation.SetTimezoneOverride(b.cfg.TimezoneID))
	}
	if request.Mode == harvest.ModeAPI {
		headers := network.Headers{
			"Referer":          b.cfg.Referer,
			"X-Requested-With": "XMLHttpRequest",
			"Accept":           "application/json, text/plain, */*",
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions,
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.cfg.SettleDelay),
		chromedp.Location(finalURL),
	)
	return actions
}

func (b *Browser) classify(err error, runCtx context.Context) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", harvest.ErrFetchTimeout, err)
	}
	return fmt.Errorf("chromedp run: %w", err)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// APIURL renders the listing API endpoint for one keyword. The whole
// containerid value, prefix included, is escaped as a single query
// parameter.
func APIURL(base, containerIDPrefix, keyword string) string {
	return fmt.Sprintf("%s?containerid=%s", base, url.QueryEscape(containerIDPrefix+keyword))
}
