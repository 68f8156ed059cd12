// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"html/template"
	"net/http"
	"sync"

	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{BaseVM: viewdata.NewBaseVM(r, "Page Title", "/")}
type BaseVM struct {
	// Site settings (from config)
	SiteName   string
	FooterHTML template.HTML

	// Header banner date in the site time zone, e.g. "05 March 2026".
	Today string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// Security
	CSRFToken string // CSRF token for forms (use in hidden input field)
}

type site struct {
	name   string
	footer template.HTML
	clk    *clock.Clock
}

var (
	mu      sync.RWMutex
	current = site{name: models.DefaultSiteName, clk: clock.New(nil)}
)

// Init sets the site name, footer and clock used by every page.
// Call this once at startup from bootstrap.
func Init(siteName, footerHTML string, clk *clock.Clock) {
	mu.Lock()
	defer mu.Unlock()

	if siteName == "" {
		siteName = models.DefaultSiteName
	}
	if clk == nil {
		clk = clock.New(nil)
	}
	current = site{
		name:   siteName,
		footer: htmlsanitize.SanitizeToHTML(footerHTML),
		clk:    clk,
	}
}

// SiteName returns the configured site name.
func SiteName() string {
	mu.RLock()
	defer mu.RUnlock()
	return current.name
}

// NewBaseVM creates a fully populated BaseVM for a page.
//
// Parameters:
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := New(r)
	vm.Title = title
	vm.BackURL = httpnav.ResolveBackURL(r, backDefault)
	return vm
}

// New creates a BaseVM with site settings but no title.
func New(r *http.Request) BaseVM {
	mu.RLock()
	s := current
	mu.RUnlock()

	return BaseVM{
		SiteName:    s.name,
		FooterHTML:  s.footer,
		Today:       clock.LongDate(s.clk.Now()),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
}
