// Package launch starts and tracks the Firefox instances of a
// measurement run, one persistent-profile browser per configured
// participant.
package launch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Defaults applied when LaunchOptions leave fields unset.
const (
	DefaultViewportWidth  = 1366
	DefaultViewportHeight = 768
	DefaultTimeout        = 30000 // milliseconds
)

// LaunchOptions configures one browser instance.
type LaunchOptions struct {
	// BinaryPath is the resolved Firefox or Tor Browser binary. Empty
	// means the playwright-managed Firefox build.
	BinaryPath string

	// ProfileDir is the browser profile directory. Empty launches with
	// a throwaway profile.
	ProfileDir string

	// Headless controls whether the browser runs without a window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout is the default per-operation timeout in milliseconds
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Instance is one running browser participant.
type Instance struct {
	// BrowserID ties the instance back to its BrowserConfig
	BrowserID string

	// Context is the persistent browser context
	Context playwright.BrowserContext

	// Page is the initial page of the context
	Page playwright.Page

	Headless  bool
	CreatedAt time.Time
}

// Launcher owns the Playwright runtime and the set of running
// instances, keyed by browser id.
type Launcher struct {
	mu          sync.RWMutex
	instances   map[string]*Instance
	playwright  *playwright.Playwright
	initialized bool
}

// NewLauncher creates a launcher. Initialize must be called before any
// instance is started.
func NewLauncher() *Launcher {
	return &Launcher{
		instances: make(map[string]*Instance),
	}
}

// Initialize installs (if needed) and starts the Playwright runtime.
// Output is discarded so driver installation noise stays out of the
// harness log.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Launch starts one browser instance for the given browser id. The
// profile directory is opened as a persistent context so state written
// during the run survives for archiving.
func (l *Launcher) Launch(browserID string, opts LaunchOptions) (*Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if browserID == "" {
		return nil, fmt.Errorf("browser id is required")
	}

	if _, exists := l.instances[browserID]; exists {
		return nil, fmt.Errorf("browser %q is already running", browserID)
	}

	if !l.initialized {
		return nil, fmt.Errorf("launcher not initialized")
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: &opts.Headless,
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.BinaryPath != "" {
		launchOpts.ExecutablePath = &opts.BinaryPath
	}

	context, err := l.playwright.Firefox.LaunchPersistentContext(opts.ProfileDir, launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser %q: %w", browserID, err)
	}

	page, err := firstPage(context)
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to open page for browser %q: %w", browserID, err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	instance := &Instance{
		BrowserID: browserID,
		Context:   context,
		Page:      page,
		Headless:  opts.Headless,
		CreatedAt: time.Now(),
	}

	l.instances[browserID] = instance
	return instance, nil
}

// firstPage returns the context's initial page, creating one if the
// persistent context came up empty.
func firstPage(context playwright.BrowserContext) (playwright.Page, error) {
	if pages := context.Pages(); len(pages) > 0 {
		return pages[0], nil
	}
	return context.NewPage()
}

// Get retrieves a running instance by browser id.
func (l *Launcher) Get(browserID string) (*Instance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	instance, exists := l.instances[browserID]
	if !exists {
		return nil, fmt.Errorf("browser %q not found", browserID)
	}
	return instance, nil
}

// Running returns the ids of all running instances.
func (l *Launcher) Running() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.instances))
	for id := range l.instances {
		ids = append(ids, id)
	}
	return ids
}

// Close shuts down one instance.
func (l *Launcher) Close(browserID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	instance, exists := l.instances[browserID]
	if !exists {
		return fmt.Errorf("browser %q not found", browserID)
	}

	_ = instance.Page.Close() // Ignore errors, continue cleanup
	err := instance.Context.Close()
	delete(l.instances, browserID)
	if err != nil {
		return fmt.Errorf("failed to close browser %q: %w", browserID, err)
	}
	return nil
}

// Shutdown closes every instance and stops the Playwright runtime.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for id, instance := range l.instances {
		_ = instance.Page.Close()
		if err := instance.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("browser %q: %w", id, err))
		}
	}
	l.instances = make(map[string]*Instance)

	if l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		l.playwright = nil
		l.initialized = false
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d error(s): %v", len(errs), errs)
	}
	return nil
}
