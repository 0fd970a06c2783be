// File: internal/browser/locator.go
package browser

import "github.com/chromedp/chromedp"

// Locator names one element of a signup screen. Query is either a CSS
// selector or an XPath expression; XPath selects which.
type Locator struct {
	Name  string
	Query string
	XPath bool
}

// CSS builds a CSS-selector locator.
func CSS(name, query string) Locator {
	return Locator{Name: name, Query: query}
}

// XPath builds an XPath locator.
func XPath(name, query string) Locator {
	return Locator{Name: name, Query: query, XPath: true}
}

// queryOption maps the locator kind onto the matching chromedp query option.
func (l Locator) queryOption() chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
