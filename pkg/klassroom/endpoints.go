package klassroom

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultWebURL is the front-end entry point that issues the device cookie
	DefaultWebURL = "https://www.klass.ly"

	// DefaultAPIURL is the base URL of the Klassroom API
	DefaultAPIURL = "https://api2.klassroom.co"

	// AuthEndpoint exchanges phone+password for a session token
	AuthEndpoint = "/auth.basic"

	// ConnectEndpoint returns the users+classes snapshot
	ConnectEndpoint = "/app.connect"

	// HistoryEndpoint returns one page of post history for a class
	HistoryEndpoint = "/klass.history"

	// NullToken is the sentinel auth token sent before authentication
	NullToken = "null"

	// DeviceCookieName is the cookie carrying the per-session device identifier
	DeviceCookieName = "klassroom_device"

	// TokenCookieName is the cookie mirroring the session auth token
	TokenCookieName = "klassroom_token"

	// legacyImageHost is the media origin that rejects direct fetches; its
	// assets are reachable through the front end's /_data path instead
	legacyImageHost = "https://data.klassroom.co/img/"
)

// Extraction patterns for the front-end entry page and its script bundle.
var (
	apiKeyPattern  = regexp.MustCompile(`api_key:"([0-9a-f]+)",`)
	appIDPattern   = regexp.MustCompile(`APP_ID:"([0-9a-f]+)",`)
	bundlePattern  = regexp.MustCompile(`js/_react/dist/bundle[^"]*\.js`)
	webAuthPattern = regexp.MustCompile(`klassroomauth=([0-9a-z]+)"`)
)

// RewriteImageURL maps a legacy image-host URL onto the front end's same-origin
// data path. Returns the original URL unchanged when it is not on that host.
func RewriteImageURL(rawURL, webURL string) (string, bool) {
	if !strings.Contains(rawURL, "data.klassroom.co/img/") {
		return rawURL, false
	}
	return strings.Replace(rawURL, legacyImageHost, strings.TrimRight(webURL, "/")+"/_data/img/", 1), true
}

// ImageHeaders returns the browser-like headers the front-end image path
// requires to serve rewritten assets.
func ImageHeaders(webURL string) map[string]string {
	host := webURL
	if u, err := url.Parse(webURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return map[string]string{
		"Host":           host,
		"Sec-Fetch-Dest": "image",
		"Sec-Fetch-Mode": "no-cors",
		"Sec-Fetch-Site": "same-origin",
		"Pragma":         "no-cache",
		"Cache-Control":  "no-cache",
		"Accept":         "image/avif,image/webp,*/*",
	}
}
