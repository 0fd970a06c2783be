// File: internal/signup/browser_fake_test.go
package signup

import (
	"sync"
	"time"

	"github.com/forgelabs-io/accountforge/internal/browser"
)

// fakeBrowser scripts the Browser surface. Visibility is keyed by locator
// name; waitHook can override visibility per call for dynamic screens.
type fakeBrowser struct {
	mu        sync.Mutex
	visible   map[string]bool
	fills     map[string][]string
	sets      map[string][]string
	clicks    map[string]int
	navs      []string
	url       string
	failFill  map[string]error
	failClick map[string]error
	navErr    error
	waitHook  func(name string) (bool, bool) // (visible, handled)
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		visible:   make(map[string]bool),
		fills:     make(map[string][]string),
		sets:      make(map[string][]string),
		clicks:    make(map[string]int),
		failFill:  make(map[string]error),
		failClick: make(map[string]error),
	}
}

func (f *fakeBrowser) Navigate(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navErr != nil {
		return f.navErr
	}
	f.navs = append(f.navs, url)
	f.url = url
	return nil
}

func (f *fakeBrowser) Fill(loc browser.Locator, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFill[loc.Name]; err != nil {
		return err
	}
	f.fills[loc.Name] = append(f.fills[loc.Name], value)
	return nil
}

func (f *fakeBrowser) SetValue(loc browser.Locator, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[loc.Name] = append(f.sets[loc.Name], value)
	return nil
}

func (f *fakeBrowser) Click(loc browser.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failClick[loc.Name]; err != nil {
		return err
	}
	f.clicks[loc.Name]++
	return nil
}

func (f *fakeBrowser) RemoveAttribute(loc browser.Locator, attr string) error {
	return nil
}

func (f *fakeBrowser) WaitFor(loc browser.Locator, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitHook != nil {
		if visible, handled := f.waitHook(loc.Name); handled {
			return visible, nil
		}
	}
	return f.visible[loc.Name], nil
}

func (f *fakeBrowser) CurrentURL() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakeBrowser) clickCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clicks[name]
}

func (f *fakeBrowser) filled(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fills[name]
}
