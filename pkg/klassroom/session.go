package klassroom

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"klassdump/pkg/config"
	"klassdump/pkg/logger"
)

// Session holds the transport client and the transient credentials every API
// call carries: device identifier, application identifier, and auth token.
// It also owns the directory snapshot once Connect has run.
type Session struct {
	client *Client
	cfg    config.KlassroomConfig
	logger logger.Logger

	Device  string
	AppID   string
	WebAuth string
	Token   string

	Users   map[string]*User
	Klasses map[string]*Class
}

// NewSession creates a session against the configured Klassroom deployment
func NewSession(cfg config.KlassroomConfig, timeout time.Duration, log logger.Logger) *Session {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Session{
		client:  NewClient(timeout, cfg.UserAgent, log),
		cfg:     cfg,
		logger:  log,
		Token:   NullToken,
		Users:   make(map[string]*User),
		Klasses: make(map[string]*Class),
	}
}

// Client returns the session's transport client
func (s *Session) Client() *Client {
	return s.client
}

// WebURL returns the configured front-end base URL without a trailing slash
func (s *Session) WebURL() string {
	return strings.TrimRight(s.cfg.WebURL, "/")
}

func (s *Session) apiURL(endpoint string) string {
	return strings.TrimRight(s.cfg.APIURL, "/") + endpoint
}

// metadata returns the form fields sent on every API call
func (s *Session) metadata() url.Values {
	form := url.Values{}
	form.Set("auth_token", s.Token)
	form.Set("device", s.Device)
	form.Set("app_id", s.AppID)
	form.Set("version", s.cfg.Version)
	form.Set("culture", s.cfg.Culture)
	form.Set("gmt_offset", s.cfg.GMTOffset)
	form.Set("tz", s.cfg.Timezone)
	form.Set("dst", s.cfg.DST)
	return form
}

// Bootstrap fetches the front-end entry page and extracts the session-scoped
// device identifier (cookie) and the application identifier (script text).
// When the key is not embedded in the entry page itself it is pulled from the
// referenced script bundle. Either extraction failing is fatal: no later call
// can be authenticated without both values.
func (s *Session) Bootstrap() error {
	entryURL := s.WebURL() + "/"
	s.logger.InfoWithFields("fetching entry page", map[string]interface{}{"url": entryURL})

	body, err := s.client.GetBody(entryURL)
	if err != nil {
		return err
	}

	device, ok := s.client.Cookie(entryURL, DeviceCookieName)
	if !ok || device == "" {
		return &Error{
			Type:    ErrorTypeBootstrap,
			Message: fmt.Sprintf("entry page did not set the %s cookie", DeviceCookieName),
		}
	}
	s.Device = device
	s.logger.InfoWithFields("got device identifier", map[string]interface{}{"device": device})

	s.acknowledgeWebAuth(body)

	appID, err := s.extractAppID(body)
	if err != nil {
		return err
	}
	s.AppID = appID
	s.logger.InfoWithFields("got application identifier", map[string]interface{}{"app_id": appID})

	return nil
}

// acknowledgeWebAuth extracts the klassroomauth marker from the entry page and
// echoes it back on the front end's data path. The front end does the same on
// load; failure here is logged, not fatal.
func (s *Session) acknowledgeWebAuth(body []byte) {
	match := webAuthPattern.FindSubmatch(body)
	if match == nil {
		s.logger.Debug("entry page carries no klassroomauth marker")
		return
	}
	s.WebAuth = string(match[1])

	ackURL := fmt.Sprintf("%s/_data/klassroomauth?klassroomauth=%s", s.WebURL(), s.WebAuth)
	if _, err := s.client.GetBody(ackURL); err != nil {
		s.logger.WarnWithFields("failed to acknowledge klassroomauth", map[string]interface{}{
			"url":   ackURL,
			"error": err.Error(),
		})
	}
}

// extractAppID pulls the application key from the entry page, falling back to
// the referenced script bundle.
func (s *Session) extractAppID(body []byte) (string, error) {
	if match := apiKeyPattern.FindSubmatch(body); match != nil {
		return string(match[1]), nil
	}

	bundleRef := bundlePattern.Find(body)
	if bundleRef == nil {
		return "", &Error{
			Type:    ErrorTypeBootstrap,
			Message: "no application key or script bundle reference on entry page",
		}
	}

	bundleURL := s.WebURL() + "/" + string(bundleRef)
	s.logger.DebugWithFields("fetching script bundle", map[string]interface{}{"url": bundleURL})

	bundle, err := s.client.GetBody(bundleURL)
	if err != nil {
		return "", &Error{
			Type:    ErrorTypeBootstrap,
			Message: fmt.Sprintf("failed to fetch script bundle: %v", err),
		}
	}

	match := appIDPattern.FindSubmatch(bundle)
	if match == nil {
		return "", &Error{
			Type:    ErrorTypeBootstrap,
			Message: "application key not found in script bundle",
		}
	}
	return string(match[1]), nil
}

// Authenticate exchanges phone+password for a session auth token. A response
// without an auth_token field is fatal: wrong credentials, a locked account,
// and an API shape change are indistinguishable here.
func (s *Session) Authenticate(phone, password string) error {
	s.logger.Info("authenticating")

	form := s.metadata()
	form.Set("phone", phone)
	form.Set("password", password)

	var resp authResponse
	if err := s.client.PostFormJSON(s.apiURL(AuthEndpoint), form, &resp); err != nil {
		return err
	}

	if resp.AuthToken == "" {
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "auth response carries no auth_token",
		}
	}

	s.Token = resp.AuthToken
	s.client.SetCookie(s.cfg.APIURL, TokenCookieName, s.Token)
	s.client.SetCookie(s.cfg.WebURL, TokenCookieName, s.Token)
	s.logger.Info("authenticated")
	return nil
}

// Connect fetches the directory snapshot. A response without users or klasses
// is treated as an empty snapshot, not an error: the server may not recognize
// the token yet right after authentication.
func (s *Session) Connect() error {
	s.logger.Info("connecting")

	var resp connectResponse
	if err := s.client.PostFormJSON(s.apiURL(ConnectEndpoint), s.metadata(), &resp); err != nil {
		return err
	}

	s.Users = make(map[string]*User, len(resp.Users))
	for id, user := range resp.Users {
		if user == nil {
			continue
		}
		if user.ID == "" {
			user.ID = id
		}
		s.Users[id] = user
	}

	s.Klasses = make(map[string]*Class, len(resp.Klasses))
	for id, klass := range resp.Klasses {
		if klass == nil {
			continue
		}
		if klass.ID == "" {
			klass.ID = id
		}
		s.Klasses[id] = klass
	}

	if len(resp.Klasses) == 0 {
		s.logger.Warn("snapshot carries no classes")
	}
	s.logger.InfoWithFields("snapshot loaded", map[string]interface{}{
		"users":   len(s.Users),
		"klasses": len(s.Klasses),
	})
	return nil
}

// LookupUser resolves a user id against the snapshot
func (s *Session) LookupUser(id string) (*User, bool) {
	user, ok := s.Users[id]
	return user, ok
}

// Login runs the full observed session bootstrap sequence: entry page,
// unauthenticated connect, authentication, then entry page and connect again.
// The server appears to cache an unauthenticated snapshot, so the pre-auth
// connect is kept as observed.
func (s *Session) Login(phone, password string) error {
	if err := s.Bootstrap(); err != nil {
		return err
	}
	if err := s.Connect(); err != nil {
		return err
	}
	if err := s.Authenticate(phone, password); err != nil {
		return err
	}
	if err := s.Bootstrap(); err != nil {
		return err
	}
	return s.Connect()
}
