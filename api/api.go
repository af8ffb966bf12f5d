package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudx-io/openescrow/api/auctions"
	"github.com/cloudx-io/openescrow/api/escrow"
	"github.com/cloudx-io/openescrow/api/receipts"
	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/receipt"
)

// New return api router
func New(engine *core.Engine, signer *receipt.Signer, gatherer prometheus.Gatherer, allowedOrigins string) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(allowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	auctions.New(engine).
		Mount(router, "/auctions")
	escrow.New(engine).
		Mount(router, "")
	receipts.New(signer).
		Mount(router, "/receipts")

	if gatherer != nil {
		router.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}))(router).ServeHTTP
}
