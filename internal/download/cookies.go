package download

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all"
	"golang.org/x/net/publicsuffix"
)

// cookieExporter lazily exports browser cookies into Netscape files yt-dlp
// can consume, one file per registrable domain. Export failures shut the
// domain off instead of repeating on every fetch.
type cookieExporter struct {
	browser string
	dir     string

	mu       sync.Mutex
	exported map[string]string
	stores   []kooky.CookieStore
}

func newCookieExporter(browser, dir string) *cookieExporter {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "spool-cookies")
	}
	return &cookieExporter{
		browser:  strings.ToLower(strings.TrimSpace(browser)),
		dir:      dir,
		exported: make(map[string]string),
	}
}

// fileFor returns the cookie file for rawURL's registrable domain,
// exporting it on first use. Best effort; returns "" when no cookies exist.
func (e *cookieExporter) fileFor(rawURL string) string {
	domain := RegistrableDomain(rawURL)
	if domain == "" {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if file, ok := e.exported[domain]; ok {
		return file
	}
	file, err := e.export(domain)
	if err != nil {
		e.exported[domain] = ""
		return ""
	}
	e.exported[domain] = file
	return file
}

func (e *cookieExporter) export(domain string) (string, error) {
	cookies := e.readCookies(domain)
	if len(cookies) == 0 {
		return "", fmt.Errorf("no cookies for %s", domain)
	}
	if err := os.MkdirAll(e.dir, 0o700); err != nil {
		return "", fmt.Errorf("create cookie dir: %w", err)
	}
	file := filepath.Join(e.dir, domain+".txt")
	if err := writeNetscapeFile(file, cookies); err != nil {
		return "", err
	}
	return file, nil
}

func (e *cookieExporter) readCookies(domain string) []*kooky.Cookie {
	if e.stores == nil {
		e.stores = kooky.FindAllCookieStores()
	}
	var out []*kooky.Cookie
	for _, store := range e.stores {
		if e.browser != "" && e.browser != "all" && !strings.EqualFold(store.Browser(), e.browser) {
			continue
		}
		cookies, err := store.ReadCookies(kooky.Valid)
		if err != nil {
			continue
		}
		for _, cookie := range cookies {
			if cookieDomainMatches(cookie.Domain, domain) {
				out = append(out, cookie)
			}
		}
	}
	return out
}

// cookieDomainMatches reports whether a stored cookie domain belongs to the
// registrable domain, honoring the leading-dot convention.
func cookieDomainMatches(cookieDomain, domain string) bool {
	d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cookieDomain)), ".")
	return d == domain || strings.HasSuffix(d, "."+domain)
}

// writeNetscapeFile writes cookies in the Netscape format yt-dlp accepts.
func writeNetscapeFile(path string, cookies []*kooky.Cookie) error {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, cookie := range cookies {
		b.WriteString(netscapeLine(cookie))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

func netscapeLine(c *kooky.Cookie) string {
	includeSub := "FALSE"
	if strings.HasPrefix(c.Domain, ".") {
		includeSub = "TRUE"
	}
	secure := "FALSE"
	if c.Secure {
		secure = "TRUE"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	var expires int64
	if !c.Expires.IsZero() {
		expires = c.Expires.Unix()
	}
	return strings.Join([]string{
		c.Domain, includeSub, path, secure,
		strconv.FormatInt(expires, 10), c.Name, c.Value,
	}, "\t")
}

// RegistrableDomain reduces a URL to its eTLD+1 ("cdn.voe.sx" -> "voe.sx").
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
