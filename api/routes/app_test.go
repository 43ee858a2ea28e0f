package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"jobly/api/handler"
	"jobly/api/middleware"
	"jobly/internal/dto"
	"jobly/internal/repository"
	"jobly/internal/service"
	"jobly/internal/testutil"
	"jobly/internal/utils"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type captureMailer struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, email, _ string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = token
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *captureMailer) reset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

type testApp struct {
	t            *testing.T
	server       *httptest.Server
	db           *gorm.DB
	mailer       *captureMailer
	limiterClock *testutil.Clock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	repos := repository.NewManager(db)
	mailer := &captureMailer{codes: map[string]string{}, resets: map[string]string{}}
	clock := service.RealClock{}

	sessions := service.NewSessionService(
		service.JWTSessionIssuer{Manager: &utils.SessionTokenManager{
			Secret: []byte("e2e-session-secret-0123456789abcdef"),
			Issuer: "jobly",
			TTL:    24 * time.Hour,
			Now:    clock.Now,
		}},
		repository.NewSessionRepository(rdb),
		clock,
	)
	auth := service.NewAuthService(
		repos,
		sessions,
		mailer,
		service.BcryptPasswordHasher{Cost: bcrypt.MinCost},
		service.MFATokenIssuerJWT{Secret: []byte("e2e-mfa-secret-0123456789abcdef"), Issuer: "jobly", Clock: clock},
		service.NewTOTPProvider("Jobly"),
		nil,
		clock,
		service.AuthConfig{},
		logger,
	)

	validate := handler.NewValidator()
	cookie := handler.DefaultSessionCookie()
	cookie.Secure = false
	authHandler := handler.NewAuthHandler(auth, validate, logger)
	authHandler.Cookie = cookie
	csrf := middleware.NewCSRF([]byte("e2e-csrf-secret-0123456789abcdef"))
	csrf.Secure = false

	limiterClock := testutil.NewClock(time.Now())
	limiter := middleware.NewRateLimiter(repository.NewRateLimitRepository(rdb), "auth", 5, time.Minute, logger)
	limiter.Now = limiterClock.Now

	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(logger)
	e.Use(echoMiddleware.RequestIDWithConfig(echoMiddleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	router := &Router{
		Echo:           e,
		Auth:           authHandler,
		OAuth:          handler.NewOAuthHandler(auth, cookie),
		Account:        handler.NewAccountHandler(auth, validate, cookie),
		Marketplace:    handler.NewMarketplaceHandler(service.NewMarketplaceService(repos), validate),
		AuthMiddleware: middleware.AuthMiddleware{Sessions: sessions, Cookie: cookie},
		Accounts:       middleware.AccountMiddleware{Users: auth},
		CSRF:           csrf,
		AuthRate:       limiter,
	}
	router.RegisterRoutes()

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testApp{t: t, server: server, db: db, mailer: mailer, limiterClock: limiterClock}
}

type apiClient struct {
	t      *testing.T
	app    *testApp
	http   *http.Client
	ip     string
	csrf   string
	accept string
}

// newClient returns a cookie-keeping client that already holds a CSRF token.
func (a *testApp) newClient(ip string) *apiClient {
	a.t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	c := &apiClient{
		t:   a.t,
		app: a,
		ip:  ip,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	var token dto.CSRFResponse
	require.Equal(a.t, http.StatusOK, c.call(http.MethodGet, "/auth/csrf", nil, &token))
	c.csrf = token.Token
	return c
}

func (c *apiClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.app.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.csrf != "" {
		req.Header.Set(middleware.DefaultCSRFHeader, c.csrf)
	}
	if c.ip != "" {
		req.Header.Set(echo.HeaderXForwardedFor, c.ip)
	}
	if c.accept != "" {
		req.Header.Set(echo.HeaderAccept, c.accept)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

// call sends body as JSON and decodes the reply into out when given.
func (c *apiClient) call(method, path string, body any, out any) int {
	c.t.Helper()
	resp := c.do(method, path, body)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *apiClient) sessionCookie() *http.Cookie {
	c.t.Helper()
	u, err := url.Parse(c.app.server.URL)
	require.NoError(c.t, err)
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == middleware.DefaultSessionCookie {
			return cookie
		}
	}
	return nil
}

func (c *apiClient) register(email, password string) {
	c.t.Helper()
	var msg dto.MessageResponse
	status := c.call(http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email: email, Password: password, FirstName: "Ada", LastName: "Lovelace",
	}, &msg)
	require.Equal(c.t, http.StatusOK, status)

	code := c.app.mailer.code(utils.NormalizeEmail(email))
	require.Len(c.t, code, 6)
	var verified dto.VerifyCodeResponse
	require.Equal(c.t, http.StatusOK, c.call(http.MethodPost, "/auth/verify-code", dto.VerifyCodeRequest{Code: code}, &verified))
}

func (c *apiClient) login(email, password string) int {
	c.t.Helper()
	var out dto.LoginResponse
	return c.call(http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out)
}

func (c *apiClient) signUp(email, password string) {
	c.t.Helper()
	c.register(email, password)
	require.Equal(c.t, http.StatusOK, c.login(email, password))
}

func (c *apiClient) checkSession() dto.SessionResponse {
	c.t.Helper()
	var session dto.SessionResponse
	require.Equal(c.t, http.StatusOK, c.call(http.MethodGet, "/auth/check-session", nil, &session))
	return session
}

func cookieURL(t *testing.T, app *testApp) *url.URL {
	t.Helper()
	u, err := url.Parse(app.server.URL)
	require.NoError(t, err)
	return u
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}
