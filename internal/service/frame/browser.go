// Package frame hands authorization URLs to the system browser, which plays
// the role of both the hidden renewal frame and the interactive login window.
package frame

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// ErrUnsupportedPlatform is returned when no opener is known for the OS.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// StartFunc launches name with args without waiting for it to exit.
type StartFunc func(name string, args ...string) error

// Browser opens URLs with the platform opener. It satisfies both
// authctx.FrameBroker and authctx.Navigator.
type Browser struct {
	goos  string
	start StartFunc
	log   *zap.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Browser) { b.log = log }
}

// WithStartFunc replaces process launching, mainly for tests.
func WithStartFunc(start StartFunc) Option {
	return func(b *Browser) { b.start = start }
}

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Option {
	return func(b *Browser) { b.goos = goos }
}

// NewBrowser creates a Browser for the current platform.
func NewBrowser(opts ...Option) *Browser {
	b := &Browser{
		goos:  runtime.GOOS,
		start: startDetached,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open launches a silent renewal URL.
func (b *Browser) Open(url string) error {
	return b.launch("renewal", url)
}

// Navigate launches an interactive login or logout URL.
func (b *Browser) Navigate(url string) error {
	return b.launch("navigation", url)
}

func (b *Browser) launch(purpose, url string) error {
	name, args, err := Command(b.goos, url)
	if err != nil {
		return err
	}

	if err := b.start(name, args...); err != nil {
		b.log.Error("failed to open browser", zap.String("purpose", purpose), zap.String("opener", name), zap.Error(err))
		return fmt.Errorf("failed to open browser: %w", err)
	}

	b.log.Debug("browser opened", zap.String("purpose", purpose), zap.String("opener", name))
	return nil
}

// Command returns the opener invocation for url on goos.
func Command(goos, url string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		// cmd /c start would split the URL on '&'.
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
