package klassroom

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klassdump/pkg/config"
	"klassdump/pkg/logger"
)

const (
	testDevice = "d3v1c3t0k3n"
	testAppID  = "deadbeefcafe"
	testToken  = "tok123"
)

// mockFrontend mimics the Klassroom front end and API on one server
type mockFrontend struct {
	server *httptest.Server

	appIDInBundle bool
	omitDevice    bool
	omitAppID     bool

	entryCalls   int32
	bundleCalls  int32
	webAuthCalls int32

	authToken    string // returned by auth.basic; empty means no auth_token field
	lastAuthForm map[string]string
	connectForm  map[string]string
	connectBody  string
}

func newMockFrontend() *mockFrontend {
	m := &mockFrontend{
		authToken:   testToken,
		connectBody: `{"users": {}, "klasses": {}}`,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.entryCalls, 1)
		if !m.omitDevice {
			http.SetCookie(w, &http.Cookie{Name: DeviceCookieName, Value: testDevice})
		}
		body := `<html><head><script src="/x?klassroomauth=abc123"></script>`
		if m.appIDInBundle {
			body += `<script src="js/_react/dist/bundle.7f3a.js"></script>`
		} else if !m.omitAppID {
			body += fmt.Sprintf(`<script>var cfg = {api_key:"%s",culture:"fr"};</script>`, testAppID)
		}
		body += `</head></html>`
		fmt.Fprint(w, body)
	})

	mux.HandleFunc("/js/_react/dist/bundle.7f3a.js", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.bundleCalls, 1)
		fmt.Fprintf(w, `var config={APP_ID:"%s",API:"v4"};`, testAppID)
	})

	mux.HandleFunc("/_data/klassroomauth", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.webAuthCalls, 1)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc(AuthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		m.lastAuthForm = flattenForm(r)
		if m.authToken == "" {
			fmt.Fprint(w, `{"error": "bad credentials"}`)
			return
		}
		fmt.Fprintf(w, `{"auth_token": %q}`, m.authToken)
	})

	mux.HandleFunc(ConnectEndpoint, func(w http.ResponseWriter, r *http.Request) {
		m.connectForm = flattenForm(r)
		fmt.Fprint(w, m.connectBody)
	})

	m.server = httptest.NewServer(mux)
	return m
}

func flattenForm(r *http.Request) map[string]string {
	_ = r.ParseForm()
	form := make(map[string]string)
	for key := range r.PostForm {
		form[key] = r.PostFormValue(key)
	}
	return form
}

func (m *mockFrontend) config() config.KlassroomConfig {
	return config.KlassroomConfig{
		WebURL:    m.server.URL,
		APIURL:    m.server.URL,
		UserAgent: "test-agent",
		Version:   "4.0",
		Culture:   "fr",
		GMTOffset: "-60",
		Timezone:  "Europe/Paris",
		DST:       "true",
	}
}

func newTestSession(m *mockFrontend) *Session {
	return NewSession(m.config(), 5*time.Second, logger.NewTestLogger())
}

func TestBootstrap(t *testing.T) {
	t.Run("app id on entry page", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		s := newTestSession(m)

		require.NoError(t, s.Bootstrap())
		assert.Equal(t, testDevice, s.Device)
		assert.Equal(t, testAppID, s.AppID)
		assert.Equal(t, "abc123", s.WebAuth)
		assert.Equal(t, int32(1), atomic.LoadInt32(&m.webAuthCalls))
		assert.Equal(t, int32(0), atomic.LoadInt32(&m.bundleCalls))
	})

	t.Run("app id in script bundle", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		m.appIDInBundle = true
		s := newTestSession(m)

		require.NoError(t, s.Bootstrap())
		assert.Equal(t, testAppID, s.AppID)
		assert.Equal(t, int32(1), atomic.LoadInt32(&m.bundleCalls))
	})

	t.Run("missing device cookie is fatal", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		m.omitDevice = true
		s := newTestSession(m)

		err := s.Bootstrap()
		require.Error(t, err)
		apiErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, ErrorTypeBootstrap, apiErr.Type)
		assert.True(t, IsFatal(err))
	})

	t.Run("missing app id is fatal", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		m.omitAppID = true
		s := newTestSession(m)

		err := s.Bootstrap()
		require.Error(t, err)
		apiErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, ErrorTypeBootstrap, apiErr.Type)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("token extracted and sent on later calls", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		s := newTestSession(m)
		require.NoError(t, s.Bootstrap())

		require.NoError(t, s.Authenticate("+33600000000", "secret"))
		assert.Equal(t, testToken, s.Token)

		assert.Equal(t, "+33600000000", m.lastAuthForm["phone"])
		assert.Equal(t, "secret", m.lastAuthForm["password"])
		// The pre-auth sentinel rides on the auth call itself
		assert.Equal(t, NullToken, m.lastAuthForm["auth_token"])
		assert.Equal(t, testDevice, m.lastAuthForm["device"])
		assert.Equal(t, testAppID, m.lastAuthForm["app_id"])
		assert.Equal(t, "4.0", m.lastAuthForm["version"])
		assert.Equal(t, "Europe/Paris", m.lastAuthForm["tz"])

		require.NoError(t, s.Connect())
		assert.Equal(t, testToken, m.connectForm["auth_token"])
	})

	t.Run("missing auth_token is fatal", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		m.authToken = ""
		s := newTestSession(m)
		require.NoError(t, s.Bootstrap())

		err := s.Authenticate("+33600000000", "wrong")
		require.Error(t, err)
		apiErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, ErrorTypeAuth, apiErr.Type)
		assert.True(t, IsFatal(err))
		assert.Equal(t, NullToken, s.Token)
	})
}

func TestConnect(t *testing.T) {
	t.Run("snapshot builds users and classes", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		m.connectBody = `{
			"users": {"u1": {"name": "Jane Doe"}},
			"klasses": {"k1": {"key": "ABC123", "natural_name": "CP A", "level": "cp",
				"school": {"name": "Ecole du Parc"},
				"students": {"s1": {"first_name": "Lou", "last_name": "Doe", "members": {"u1": "mother"}}}}}
		}`
		s := newTestSession(m)

		require.NoError(t, s.Connect())
		require.Len(t, s.Users, 1)
		require.Len(t, s.Klasses, 1)

		user, ok := s.LookupUser("u1")
		require.True(t, ok)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "Jane Doe", user.Name)

		klass := s.Klasses["k1"]
		assert.Equal(t, "k1", klass.ID)
		assert.Equal(t, "CP A", klass.Name())
		assert.Equal(t, "Ecole du Parc", klass.School.Name)

		student := klass.Students["s1"]
		require.NotNil(t, student)
		family := student.Family(s.LookupUser)
		require.Len(t, family, 1)
		assert.Equal(t, "mother", family[0].Relationship)
		assert.Equal(t, "Jane Doe", family[0].User.Name)
	})

	t.Run("missing klasses key means empty snapshot", func(t *testing.T) {
		m := newMockFrontend()
		defer m.server.Close()
		m.connectBody = `{"users": {"u1": {"name": "Jane Doe"}}}`
		s := newTestSession(m)

		require.NoError(t, s.Connect())
		assert.Len(t, s.Users, 1)
		assert.Empty(t, s.Klasses)
	})
}

func TestLoginSequence(t *testing.T) {
	m := newMockFrontend()
	defer m.server.Close()
	s := newTestSession(m)

	require.NoError(t, s.Login("+33600000000", "secret"))
	// Entry page fetched before and after authentication, as observed
	assert.Equal(t, int32(2), atomic.LoadInt32(&m.entryCalls))
	assert.Equal(t, testToken, s.Token)
	assert.Equal(t, testToken, m.connectForm["auth_token"])
}

func TestDescribe(t *testing.T) {
	klass := &Class{
		NaturalName: "CP A",
		Level:       "cp",
		School:      School{Name: "Ecole du Parc"},
		Students: map[string]*Student{
			"s1": {FirstName: "Lou", LastName: "Doe", Members: map[string]string{"u1": "mother"}},
		},
	}
	users := map[string]*User{"u1": {ID: "u1", Name: "Jane Doe"}}
	lookup := func(id string) (*User, bool) {
		u, ok := users[id]
		return u, ok
	}

	out := klass.Describe(lookup)
	assert.Contains(t, out, "CP A Ecole du Parc (cp)")
	assert.Contains(t, out, "Lou Doe (mother: Jane Doe)")
}
