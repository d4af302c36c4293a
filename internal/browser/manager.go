// Package browser owns the process-wide headless Chromium instance
// and hands out isolated, profile-randomized browsing contexts.
package browser

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options controls browser launches.
type Options struct {
	Bin       string
	NoSandbox bool
}

// Manager serializes launch and relaunch of the single browser
// instance. The browser is relaunched iff a caller asks for a
// headless flag or proxy URL that differs from the running instance;
// callers observing a mismatch wait on the lock for the relaunch.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	logger   *slog.Logger
	browser  *rod.Browser
	launch   *launcher.Launcher
	headless bool
	proxy    string
}

func NewManager(opts Options, logger *slog.Logger) *Manager {
	return &Manager{opts: opts, logger: logger}
}

// Context is one isolated browsing session: its own cookie jar,
// storage, and device profile on top of the shared browser.
type Context struct {
	page      *rod.Page
	incognito *rod.Browser
	profile   Profile
	closeOnce sync.Once
}

// Navigate loads the URL and returns once the DOM content has loaded.
func (c *Context) Navigate(url string, timeout time.Duration) error {
	page := c.page.Timeout(timeout)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	return nil
}

// WaitVisible waits for the selector to appear. A timeout is not
// fatal for callers: some pages legitimately lack the anchor yet
// still carry usable markup.
func (c *Context) WaitVisible(selector string, timeout time.Duration) error {
	_, err := c.page.Timeout(timeout).Element(selector)
	return err
}

// HTML returns the rendered markup.
func (c *Context) HTML() (string, error) {
	return c.page.HTML()
}

// Close releases the context. Idempotent; safe on every exit path.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		_ = c.page.Close()
		if c.incognito != nil && c.incognito.BrowserContextID != "" {
			_ = proto.TargetDisposeBrowserContext{
				BrowserContextID: c.incognito.BrowserContextID,
			}.Call(c.incognito)
		}
	})
}

// Context returns a fresh isolated browsing context stamped with a
// random device profile and seeded with the stealth init scripts. If
// context creation fails (crashed browser), the manager relaunches
// once and retries; a second failure propagates.
func (m *Manager) Context(headless bool, proxy string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureBrowser(headless, proxy); err != nil {
		return nil, err
	}

	profile := randomProfile()
	ctx, err := m.newContext(profile)
	if err != nil {
		m.logger.Warn("browser context creation failed, relaunching", "error", err)
		m.closeBrowser()
		if err := m.ensureBrowser(headless, proxy); err != nil {
			return nil, err
		}
		ctx, err = m.newContext(profile)
		if err != nil {
			return nil, fmt.Errorf("browser context after relaunch: %w", err)
		}
	}
	return ctx, nil
}

// Running reports whether a browser instance is live.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// Stop closes the browser. Called on graceful shutdown after the
// dispatch queue has drained.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeBrowser()
}

// ensureBrowser launches the browser if absent or if the requested
// flags differ from the running instance. Callers hold mu.
func (m *Manager) ensureBrowser(headless bool, proxy string) error {
	if m.browser != nil && m.headless == headless && m.proxy == proxy {
		return nil
	}
	m.closeBrowser()

	l := launcher.New().
		Headless(headless).
		NoSandbox(m.opts.NoSandbox)
	if m.opts.Bin != "" {
		l = l.Bin(m.opts.Bin)
	}
	if proxy != "" {
		l = l.Proxy(proxy)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect browser: %w", err)
	}

	m.browser = b
	m.launch = l
	m.headless = headless
	m.proxy = proxy
	m.logger.Info("browser started", "headless", headless, "proxy", proxy != "")
	return nil
}

func (m *Manager) newContext(profile Profile) (*Context, error) {
	incognito, err := m.browser.Incognito()
	if err != nil {
		return nil, err
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: profile.UserAgent,
	}); err != nil {
		_ = page.Close()
		return nil, err
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             profile.Width,
		Height:            profile.Height,
		DeviceScaleFactor: 1,
		Mobile:            profile.Mobile,
	}); err != nil {
		_ = page.Close()
		return nil, err
	}
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		_ = page.Close()
		return nil, err
	}
	if _, err := page.EvalOnNewDocument(signalScript); err != nil {
		_ = page.Close()
		return nil, err
	}

	return &Context{page: page, incognito: incognito, profile: profile}, nil
}

// closeBrowser tears down the running instance. Callers hold mu.
func (m *Manager) closeBrowser() {
	if m.browser == nil {
		return
	}
	if err := m.browser.Close(); err != nil {
		m.logger.Warn("browser close failed", "error", err)
	}
	if m.launch != nil {
		m.launch.Kill()
	}
	m.browser = nil
	m.launch = nil
	m.logger.Info("browser stopped")
}
