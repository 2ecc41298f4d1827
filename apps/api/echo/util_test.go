package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/tutoring/apps/api/echo"
	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/catalog"
	"github.com/trezcool/tutoring/core/session"
	"github.com/trezcool/tutoring/core/user"
	emailsvc "github.com/trezcool/tutoring/services/email"
	logsvc "github.com/trezcool/tutoring/services/logger"
	metricsvc "github.com/trezcool/tutoring/services/metrics"
	inmemdb "github.com/trezcool/tutoring/storage/database/inmem"
	sessionstore "github.com/trezcool/tutoring/storage/session"
)

var (
	conf = &core.Config{
		TestMode:         true,
		AppName:          "Tutoring",
		Env:              "TEST",
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "Tutoring", Address: "noreply@test.cd"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Redis: core.RedisConfig{SessionTTL: 24 * time.Hour},
		Cart: core.CartConfig{
			TokenHeader:        "X-Cart-Token",
			TokenField:         "cart_token",
			SessionCookie:      "tutoring_session",
			GuestSessionPrefix: "guest_",
		},
		Metrics: core.MetricsConfig{Enabled: true, Namespace: "tutoring_test"},
	}

	usrRepo  user.Repository
	catRepo  catalog.Repository
	cartRepo cart.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotFound     = httpErr{Error: "Not found."}
)

func setup(t *testing.T) *echoapi.Server {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	catRepo = inmemdb.NewCatalogRepository(db)
	cartRepo = inmemdb.NewCartRepository(db)

	// set up validators
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	cart.InitValidators(validate, translator)

	// set up services
	logger := logsvc.NewNopLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ResetSentMessages()
	metrics := metricsvc.NewMetrics(conf)
	store := sessionstore.NewMemoryStore()

	// set up server
	return echoapi.NewServer(echoapi.Options{
		Conf:    conf,
		Logger:  logger,
		UserSvc: user.NewService(usrRepo, mailSvc, store, logger),
		CartSvc: cart.NewService(cartRepo, db, catalog.NewCatalog(catRepo), metrics, logger),
		Sessions: session.NewManager(store, session.Options{
			SecretKey:   conf.SecretKey,
			TTL:         conf.Redis.SessionTTL,
			GuestPrefix: conf.Cart.GuestSessionPrefix,
		}),
		Metrics:        metrics,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	headers  map[string]string
	cookies  []*http.Cookie
	wantCode int
	wantData []byte
	extra    interface{}
}

func (tt httpTest) do(app http.Handler) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	for k, v := range tt.headers {
		req.Header.Set(k, v)
	}
	for _, c := range tt.cookies {
		req.AddCookie(c)
	}
	app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == conf.Cart.SessionCookie {
			return c
		}
	}
	return nil
}

func decodeSummary(t *testing.T, rec *httptest.ResponseRecorder) cart.Summary {
	t.Helper()
	var sum cart.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
	return sum
}
