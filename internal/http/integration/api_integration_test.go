package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/config"
	apphttp "github.com/geocoder89/catalog/internal/http"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/geocoder89/catalog/internal/products"
	"github.com/geocoder89/catalog/internal/repo/memory"
	"github.com/geocoder89/catalog/internal/security"
	"github.com/geocoder89/catalog/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

type testApp struct {
	router     *gin.Engine
	storageDir string
	clock      *time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	disk, err := storage.NewDisk(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		Env:                "test",
		Store:              config.StoreMemory,
		TokenStore:         config.StoreMemory,
		JWTSecret:          strings.Repeat("k", 32),
		TokenTTL:           time.Hour,
		StorageDir:         dir,
		StorageURLPrefix:   "/storage",
		MaxUploadBytes:     1 << 20,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		AuthRateLimit:      100,
		AuthRateWindow:     time.Minute,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	issuer := auth.NewIssuer(auth.NewManager(cfg.JWTSecret, cfg.TokenTTL), memory.NewAuthTokensRepo())
	authSvc := auth.NewService(memory.NewUsersRepo(), security.Bcrypt{Cost: bcrypt.MinCost}, issuer)

	now := time.Unix(1700000000, 0).UTC()
	app := &testApp{storageDir: dir, clock: &now}

	store := products.NewStore(memory.NewProductsRepo(), disk, log,
		products.WithProm(prom),
		products.WithClock(func() time.Time { return *app.clock }),
	)

	app.router = apphttp.NewRouter(apphttp.Deps{
		Log:      log,
		Config:   cfg,
		Auth:     authSvc,
		Products: store,
		Prom:     prom,
		Gatherer: reg,
	})

	return app
}

func (a *testApp) tick(d time.Duration) { *a.clock = a.clock.Add(d) }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type productJSON struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Slug   string  `json:"slug"`
	Price  int64   `json:"price"`
	Image  *string `json:"image"`
	UserID string  `json:"userId"`
}

func (a *testApp) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Code != http.StatusNotModified && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v body=%s", err, w.Body.String())
		}
	}
	return w, env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(file)
	}
	_ = mw.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()

	w, env := a.do(t, jsonRequest(http.MethodPost, "/api/register",
		`{"name":"Ada","email":"`+email+`","password":"secret123"}`), "")
	if w.Code != http.StatusOK || !env.Status {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}

	var data struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.AccessToken == "" || data.TokenType != "Bearer" {
		t.Fatalf("unexpected token payload: %s", env.Data)
	}
	return data.AccessToken
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)

	token := app.register(t, "Ada@Example.com")

	w, _ := app.do(t, jsonRequest(http.MethodPost, "/api/register",
		`{"name":"Ada","email":"ada@example.com","password":"secret123"}`), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: got %d", w.Code)
	}

	w, _ = app.do(t, jsonRequest(http.MethodPost, "/api/login", `{"email":"ada@example.com","password":"wrong-pass"}`), "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got %d", w.Code)
	}

	w, _ = app.do(t, jsonRequest(http.MethodPost, "/api/login", `{"email":"nobody@example.com","password":"secret123"}`), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown email: got %d", w.Code)
	}

	w, env := app.do(t, jsonRequest(http.MethodPost, "/api/login", `{"email":"ADA@example.com","password":"secret123"}`), "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d %s", w.Code, w.Body.String())
	}
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	_ = json.Unmarshal(env.Data, &login)

	w, env = app.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), login.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: got %d", w.Code)
	}
	var profile struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(env.Data, &profile)
	if profile.Email != "ada@example.com" {
		t.Fatalf("profile email = %q", profile.Email)
	}

	w, _ = app.do(t, httptest.NewRequest(http.MethodPost, "/api/logout", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: got %d", w.Code)
	}

	// the register token is gone, the login token still works
	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout: got %d", w.Code)
	}
	w, _ = app.do(t, httptest.NewRequest(http.MethodPost, "/api/logout", nil), token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("second logout: got %d", w.Code)
	}
	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), login.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("other session: got %d", w.Code)
	}

	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), "not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d", w.Code)
	}
}

func TestRegister_RequiresJSON(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader("name=Ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w, env := app.do(t, req, "")
	if w.Code != http.StatusUnsupportedMediaType || env.Status {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestProductsRequireAuth(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, httptest.NewRequest(http.MethodGet, "/api/products", nil), "")
	if w.Code != http.StatusUnauthorized || env.Status || env.Message == "" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestProductLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "owner@example.com")

	// create without image
	w, env := app.do(t, multipartRequest(t, http.MethodPost, "/api/products",
		map[string]string{"title": "Kitchen Table", "price": "682"}, "", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var table productJSON
	_ = json.Unmarshal(env.Data, &table)
	if table.Slug != "kitchen-table-1700000000" || table.Price != 682 || table.Image != nil || table.UserID == "" {
		t.Fatalf("unexpected product: %+v", table)
	}

	// create with image
	app.tick(time.Second)
	w, env = app.do(t, multipartRequest(t, http.MethodPost, "/api/products",
		map[string]string{"title": "Foo Chair", "price": "50"}, "chair.png", pngBytes), token)
	if w.Code != http.StatusOK {
		t.Fatalf("create with image: %d %s", w.Code, w.Body.String())
	}
	var chair productJSON
	_ = json.Unmarshal(env.Data, &chair)
	if chair.Image == nil || *chair.Image != "1700000001.png" {
		t.Fatalf("unexpected image: %+v", chair.Image)
	}
	if _, err := os.Stat(filepath.Join(app.storageDir, *chair.Image)); err != nil {
		t.Fatalf("image not on disk: %v", err)
	}

	// the stored image is served back
	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/storage/"+*chair.Image, nil), "")
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), pngBytes) {
		t.Fatalf("static image: %d", w.Code)
	}

	// list and search
	w, env = app.do(t, httptest.NewRequest(http.MethodGet, "/api/products?search=FOO", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var page struct {
		Data  []productJSON `json:"data"`
		Total int           `json:"total"`
	}
	_ = json.Unmarshal(env.Data, &page)
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].ID != chair.ID {
		t.Fatalf("search result: %+v", page)
	}

	// replace the image over POST
	app.tick(5 * time.Second)
	w, env = app.do(t, multipartRequest(t, http.MethodPost, "/api/products/"+strconv.FormatInt(chair.ID, 10),
		map[string]string{"price": "55"}, "chair2.png", pngBytes), token)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	var updated productJSON
	_ = json.Unmarshal(env.Data, &updated)
	if updated.Image == nil || *updated.Image != "1700000006.png" || updated.Price != 55 {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if updated.Slug != "foo-chair-1700000006" {
		t.Fatalf("slug should be regenerated, got %q", updated.Slug)
	}
	if _, err := os.Stat(filepath.Join(app.storageDir, *chair.Image)); !os.IsNotExist(err) {
		t.Fatalf("old image still present: %v", err)
	}

	// delete
	path := "/api/products/" + strconv.FormatInt(chair.ID, 10)
	w, env = app.do(t, httptest.NewRequest(http.MethodDelete, path, nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	var deleted productJSON
	_ = json.Unmarshal(env.Data, &deleted)
	if deleted.ID != chair.ID || deleted.Price != 55 {
		t.Fatalf("delete should return prior data, got %+v", deleted)
	}
	if _, err := os.Stat(filepath.Join(app.storageDir, *updated.Image)); !os.IsNotExist(err) {
		t.Fatalf("image survived delete: %v", err)
	}

	w, env = app.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
	if w.Code != http.StatusNotFound || env.Status || string(env.Data) != "null" {
		t.Fatalf("get deleted: %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsAndHealth(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}

	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil), "")
	if w.Code != http.StatusOK {
		t.Fatalf("readyz: %d", w.Code)
	}

	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "catalog_http_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}

	w, env := app.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil), "")
	if w.Code != http.StatusNotFound || env.Status {
		t.Fatalf("unknown route: %d", w.Code)
	}
}
