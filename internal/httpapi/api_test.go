package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tienda-be/internal/admin"
	"tienda-be/internal/auth"
	"tienda-be/internal/blob"
	"tienda-be/internal/config"
	"tienda-be/internal/db"
	"tienda-be/internal/logger"
	"tienda-be/internal/metrics"
	"tienda-be/internal/middleware"
	"tienda-be/internal/order"
	"tienda-be/internal/product"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

type testEnv struct {
	router  chi.Router
	db      *sql.DB
	fs      afero.Fs
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	conn, err := db.NewDatabase(&config.Config{
		DBDriver: config.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "database.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(conn, config.DriverSQLite))

	creds, err := admin.NewStaticProvider("admin:1234")
	require.NoError(t, err)
	gate := admin.NewGate(creds, admin.NewMemoryStore(), time.Hour)

	fs := afero.NewMemMapFs()
	blobs, err := blob.NewDiskStore(fs, "/uploads", "/uploads")
	require.NoError(t, err)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	api := New(
		product.NewService(product.NewRepository(conn)),
		order.NewService(order.NewRepository(conn)),
		gate,
		blobs,
		m,
		middleware.NewLimiter(),
		opts,
	)
	return &testEnv{router: api.Routes(), db: conn, fs: fs, metrics: m}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.RemoteAddr = "192.0.2.1:5000"
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("imagen", file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestEndToEnd_MugScenario(t *testing.T) {
	env := newTestEnv(t, Options{})

	// Create Mug
	w := env.do(t, multipartRequest(t, http.MethodPost, "/api/productos", map[string]string{
		"nombre": "Mug",
		"precio": "10",
		"stock":  "5",
	}, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "Producto general creado", created["mensaje"])
	mugID := int64(created["id"].(float64))

	// List returns it
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":`+itoa(mugID)+`,"nombre":"Mug","descripcion":"","precio":10,"imagen":null,"stock":5,"categoria":"","tipo":"general"}]`, w.Body.String())

	// Order 2 x 10
	w = env.do(t, jsonRequest(http.MethodPost, "/api/ordenes", `{
		"nombre_cliente": "Ana",
		"email_cliente": "ana@example.com",
		"direccion": "Calle 1",
		"total": 20,
		"items": [{"id": `+itoa(mugID)+`, "cantidad": 2, "precio": 10}]
	}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[map[string]any](t, w)
	assert.Equal(t, "Orden creada", placed["mensaje"])
	orderID := int64(placed["orderId"].(float64))

	// Orders list shows the caller's total
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/ordenes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[[]map[string]any](t, w)
	require.Len(t, orders, 1)
	assert.Equal(t, 20.0, orders[0]["total"])
	assert.Equal(t, "Ana", orders[0]["nombre_cliente"])
	assert.Regexp(t, `Z$`, orders[0]["created_at"])

	// Delete Mug
	w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/productos/"+itoa(mugID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mensaje":"Producto eliminado"}`, w.Body.String())

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
	assert.JSONEq(t, `[]`, w.Body.String())

	// The line item still points at the deleted product
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/ordenes/"+itoa(orderID)+"/items", nil))
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]map[string]any](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, float64(mugID), items[0]["producto_id"])
	assert.Equal(t, 2.0, items[0]["cantidad"])
	assert.Equal(t, 10.0, items[0]["precio_unitario"])

	// Metrics saw the writes
	mw := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mw.Body.String(), `tienda_orders_placed_total 1`)
	assert.Contains(t, mw.Body.String(), `tienda_catalog_mutations_total{class="general",op="create"} 1`)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestProducts_Collection(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(t, multipartRequest(t, http.MethodPost, "/api/productos/coleccion", map[string]string{
		"nombre":      "Jarra",
		"descripcion": "edición limitada",
		"precio":      "30.50",
		"categoria":   "cerámica",
	}, &formFile{name: "Jarra Azul.png", data: []byte("png")}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[createdResponse](t, w)
	assert.Equal(t, "Producto de colección creado", created.Message)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos/coleccion", nil))
	products := decode[[]map[string]any](t, w)
	require.Len(t, products, 1)
	assert.Equal(t, "coleccion", products[0]["tipo"])
	assert.Equal(t, 30.5, products[0]["precio"])
	ref, _ := products[0]["imagen"].(string)
	assert.Regexp(t, `^/uploads/\d+_jarra-azul\.png$`, ref)

	t.Run("ImageIsServed", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, ref, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "png", w.Body.String())
	})

	t.Run("GeneralListDoesNotShowIt", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("ReplaceAssignsNewID", func(t *testing.T) {
		w := env.do(t, multipartRequest(t, http.MethodPut, "/api/productos/coleccion/"+itoa(created.ID), map[string]string{
			"nombre": "Jarra grande",
			"precio": "45",
		}, nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		replaced := decode[createdResponse](t, w)
		assert.NotEqual(t, created.ID, replaced.ID)

		w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos/coleccion", nil))
		products := decode[[]map[string]any](t, w)
		require.Len(t, products, 1)
		assert.Equal(t, "Jarra grande", products[0]["nombre"])
		created.ID = replaced.ID
	})

	t.Run("CollectionDeleteIgnoresGeneral", func(t *testing.T) {
		w := env.do(t, multipartRequest(t, http.MethodPost, "/api/productos", map[string]string{"nombre": "Plato"}, nil))
		general := decode[createdResponse](t, w)

		w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/productos/coleccion/"+itoa(general.ID), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/productos/coleccion/"+itoa(created.ID), nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"mensaje":"Producto de colección eliminado"}`, w.Body.String())
	})
}

func TestProducts_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name   string
		fields map[string]string
		errMsg string
	}{
		{"MissingName", map[string]string{"precio": "10"}, "el nombre es requerido"},
		{"NegativePrice", map[string]string{"nombre": "Mug", "precio": "-1"}, "el precio no puede ser negativo"},
		{"BadPrice", map[string]string{"nombre": "Mug", "precio": "diez"}, `precio inválido: "diez"`},
		{"BadStock", map[string]string{"nombre": "Mug", "stock": "1.5"}, `stock inválido: "1.5"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, multipartRequest(t, http.MethodPost, "/api/productos", tt.fields, &formFile{name: "x.png", data: []byte("x")}))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":`+quote(tt.errMsg)+`}`, w.Body.String())
		})
	}

	t.Run("RejectedUploadStoresNoImage", func(t *testing.T) {
		entries, err := afero.ReadDir(env.fs, "/uploads")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("UrlencodedForm", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/productos", strings.NewReader("nombre=Taza&precio=7"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := env.do(t, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestProducts_DeleteNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, target := range []string{"/api/productos/999", "/api/productos/abc", "/api/productos/coleccion/0"} {
		w := env.do(t, httptest.NewRequest(http.MethodDelete, target, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestOrders_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})

	t.Run("EmptyItems", func(t *testing.T) {
		w := env.do(t, jsonRequest(http.MethodPost, "/api/ordenes", `{"nombre_cliente":"Ana","total":0,"items":[]}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Orden sin items"}`, w.Body.String())

		w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/ordenes", nil))
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("ItemMissingPrice", func(t *testing.T) {
		w := env.do(t, jsonRequest(http.MethodPost, "/api/ordenes", `{"items":[{"id":1,"cantidad":2}]}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		w := env.do(t, jsonRequest(http.MethodPost, "/api/ordenes", `{"items":`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"JSON inválido"}`, w.Body.String())
	})

	t.Run("ItemsOfUnknownOrder", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/ordenes/77/items", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func login(t *testing.T, env *testEnv, user, pass string) *httptest.ResponseRecorder {
	t.Helper()
	return env.do(t, jsonRequest(http.MethodPost, "/api/admin/login", `{"usuario":`+quote(user)+`,"password":`+quote(pass)+`}`))
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.SessionCookie)
	return nil
}

func TestAdmin_SessionFlow(t *testing.T) {
	env := newTestEnv(t, Options{SecureCookies: true})

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/check", nil))
	assert.JSONEq(t, `{"loggedIn":false}`, w.Body.String())

	w = login(t, env, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Usuario o contraseña incorrectos"}`, w.Body.String())

	w = login(t, env, "admin", "1234")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mensaje":"Login exitoso"}`, w.Body.String())
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, 3600, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/check", nil)
	req.AddCookie(cookie)
	w = env.do(t, req)
	assert.JSONEq(t, `{"loggedIn":true,"usuario":"admin"}`, w.Body.String())

	t.Run("BearerFallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/check", nil)
		req.Header.Set("Authorization", "Bearer "+cookie.Value)
		w := env.do(t, req)
		assert.JSONEq(t, `{"loggedIn":true,"usuario":"admin"}`, w.Body.String())
	})

	req = httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.AddCookie(cookie)
	w = env.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mensaje":"Sesión cerrada"}`, w.Body.String())
	assert.True(t, sessionCookie(t, w).MaxAge < 0)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/check", nil)
	req.AddCookie(cookie)
	w = env.do(t, req)
	assert.JSONEq(t, `{"loggedIn":false}`, w.Body.String())
}

func TestAdmin_FormLogin(t *testing.T) {
	env := newTestEnv(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader("usuario=admin&password=1234"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(t, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_LoginRateLimited(t *testing.T) {
	orig := middleware.TierStrict
	middleware.TierStrict = middleware.Tier{Name: "strict", Limit: rate.Limit(0.001), Burst: 2}
	defer func() { middleware.TierStrict = orig }()

	env := newTestEnv(t, Options{})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, login(t, env, "admin", "nope").Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestEnforceAdmin(t *testing.T) {
	env := newTestEnv(t, Options{EnforceAdmin: true})

	w := env.do(t, multipartRequest(t, http.MethodPost, "/api/productos", map[string]string{"nombre": "Mug"}, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/productos/1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Reads stay public
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(t, login(t, env, "admin", "1234"))
	req := multipartRequest(t, http.MethodPost, "/api/productos", map[string]string{"nombre": "Mug"}, nil)
	req.AddCookie(cookie)
	w = env.do(t, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestStorageFailureIs500(t *testing.T) {
	env := newTestEnv(t, Options{})
	require.NoError(t, env.db.Close())

	core, logs := observer.New(zapcore.ErrorLevel)
	prev := logger.Replace(zap.New(core))
	defer logger.Replace(prev)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "sql: database is closed")

	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "/api/productos", failed[0].ContextMap()["path"])
}

func TestRouting(t *testing.T) {
	t.Run("UnknownAPIRouteIsJSON404", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/nada", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Ruta no encontrada"}`, w.Body.String())
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		w := env.do(t, httptest.NewRequest(http.MethodPatch, "/api/ordenes", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("StaticFrontend", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Tienda</h1>"), 0o644))
		env := newTestEnv(t, Options{StaticDir: dir})

		w := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		body, _ := io.ReadAll(w.Body)
		assert.Contains(t, string(body), "Tienda")

		w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/nada", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Ruta no encontrada")
	})
}
