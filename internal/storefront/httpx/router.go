package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aldomata/storefront-checkout/internal/storefront/httpx/middlewares"
)

func NewRouter(handler *Handler, carts *CartHandler, webhook *WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", handler.Checkout)
		r.Post("/payment/intent", handler.CreateIntent)
		r.Post("/payment/confirm", handler.ConfirmPayment)
		r.Get("/orders/{id}", handler.GetOrderByID)

		r.Route("/cart/{cartID}", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Post("/items", carts.AddItem)
			r.Patch("/items", carts.SetQuantity)
			r.Delete("/items/{kind}/{itemID}", carts.RemoveItem)
			r.Delete("/", carts.ClearCart)
		})
	})

	// Webhook sits outside /api: it is authenticated by signature, not by
	// anything the middleware stack provides.
	r.Post("/webhooks/payment", webhook.HandlePayment)

	return otelhttp.NewHandler(r, "storefront")
}
