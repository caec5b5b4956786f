package coordinator

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"fanplatform.dk/internal/config"
)

// ErrPopupBlocked is returned by Redirector.Open when no window can be opened.
var ErrPopupBlocked = errors.New("coordinator: popup blocked")

// Window is opened before the intent request and pointed at the checkout
// URL once it is known.
type Window interface {
	Navigate(url string) error
	Close()
}

type Redirector interface {
	Open() (Window, error)
}

// Browser opens URLs outside the process.
type Browser interface {
	// Available fails when no browser can be launched.
	Available() error
	OpenURL(url string) error
}

// PopupRedirector claims a browser window up front and navigates it on success.
type PopupRedirector struct {
	Browser Browser
}

func (p PopupRedirector) Open() (Window, error) {
	if p.Browser == nil {
		return nil, ErrPopupBlocked
	}
	if err := p.Browser.Available(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPopupBlocked, err)
	}
	return &popupWindow{browser: p.Browser}, nil
}

type popupWindow struct {
	mu      sync.Mutex
	browser Browser
	closed  bool
}

func (w *popupWindow) Navigate(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("window already closed")
	}
	return w.browser.OpenURL(url)
}

func (w *popupWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// LinkFallbackRedirector presents the checkout URL as a link.
type LinkFallbackRedirector struct {
	Out io.Writer
}

func (l LinkFallbackRedirector) Open() (Window, error) {
	return linkWindow{out: l.Out}, nil
}

type linkWindow struct {
	out io.Writer
}

func (w linkWindow) Navigate(url string) error {
	_, err := fmt.Fprintf(w.out, "Open this link to complete the payment: %s\n", url)
	return err
}

func (linkWindow) Close() {}

// NewRedirector picks the redirector for a client.redirect_mode value.
func NewRedirector(mode string, browser Browser, out io.Writer) Redirector {
	if mode == config.RedirectLink {
		return LinkFallbackRedirector{Out: out}
	}
	return PopupRedirector{Browser: browser}
}
