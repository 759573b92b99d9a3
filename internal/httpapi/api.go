package httpapi

import (
	"context"
	"io"
	"net/http"

	"tienda-be/internal/admin"
	"tienda-be/internal/metrics"
	"tienda-be/internal/middleware"
	"tienda-be/internal/order"
	"tienda-be/internal/product"
	"tienda-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

// BlobStore is what the API needs from image storage.
type BlobStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Prefix() string
	Handler() http.Handler
}

type Options struct {
	// EnforceAdmin puts catalog writes behind an admin session.
	EnforceAdmin    bool
	SecureCookies   bool
	MaxUploadMemory int64
	// StaticDir, when set, is served for every path no route matches.
	StaticDir string
}

const defaultMaxUploadMemory = 32 << 20

type API struct {
	products product.Service
	orders   order.Service
	gate     *admin.Gate
	blobs    BlobStore
	metrics  *metrics.Metrics
	limiter  *middleware.Limiter
	opts     Options
}

func New(
	products product.Service,
	orders order.Service,
	gate *admin.Gate,
	blobs BlobStore,
	m *metrics.Metrics,
	limiter *middleware.Limiter,
	opts Options,
) *API {
	if limiter == nil {
		limiter = middleware.NewLimiter()
	}
	if opts.MaxUploadMemory <= 0 {
		opts.MaxUploadMemory = defaultMaxUploadMemory
	}
	return &API{
		products: products,
		orders:   orders,
		gate:     gate,
		blobs:    blobs,
		metrics:  m,
		limiter:  limiter,
		opts:     opts,
	}
}

// Routes returns the shop's HTTP surface: the JSON API, uploaded images and
// optionally the static storefront.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Use(a.limiter.Middleware(middleware.TierGeneral))

		r.Route("/admin", func(r chi.Router) {
			r.With(a.limiter.Middleware(middleware.TierStrict)).Post("/login", a.login)
			r.Get("/check", a.check)
			r.Post("/logout", a.logout)
		})

		r.Route("/productos", func(r chi.Router) {
			r.Get("/", a.listProducts(product.ClassGeneral))
			r.Get("/coleccion", a.listProducts(product.ClassCollection))

			r.Group(func(r chi.Router) {
				if a.opts.EnforceAdmin {
					r.Use(middleware.AdminOnly(a.gate))
				}
				r.Post("/", a.createProduct(product.ClassGeneral))
				r.Post("/coleccion", a.createProduct(product.ClassCollection))
				r.Put("/{id}", a.replaceProduct(product.ClassGeneral))
				r.Put("/coleccion/{id}", a.replaceProduct(product.ClassCollection))
				r.Delete("/{id}", a.deleteProduct(nil))
				r.Delete("/coleccion/{id}", a.deleteProduct(classPtr(product.ClassCollection)))
			})
		})

		r.Route("/ordenes", func(r chi.Router) {
			r.Post("/", a.placeOrder)
			r.Get("/", a.listOrders)
			r.Get("/{id}/items", a.listOrderItems)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			utils.WriteJSONError(w, "Ruta no encontrada", http.StatusNotFound)
		})
	})

	if a.blobs != nil {
		r.Handle(a.blobs.Prefix()+"/*", a.blobs.Handler())
	}

	if a.opts.StaticDir != "" {
		r.NotFound(http.FileServer(http.Dir(a.opts.StaticDir)).ServeHTTP)
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSONError(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func classPtr(c product.Class) *product.Class { return &c }
