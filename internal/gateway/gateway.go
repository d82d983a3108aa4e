package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/dtroode/fintrack-server/internal/api/http/handler"
	"github.com/dtroode/fintrack-server/internal/api/http/router"
	"github.com/dtroode/fintrack-server/internal/logger"
)

// Upstreams are the base URLs of the proxied services.
type Upstreams struct {
	Auth    string
	Payment string
	Budget  string
}

// New returns the gateway handler. Requests under /api/auth, /api/payments
// and /api/budgets are forwarded unchanged to their upstream.
func New(upstreams Upstreams, corsOrigins []string, logger *logger.Logger) (http.Handler, error) {
	routes := []struct {
		prefix string
		target string
	}{
		{prefix: "/api/auth", target: upstreams.Auth},
		{prefix: "/api/payments", target: upstreams.Payment},
		{prefix: "/api/budgets", target: upstreams.Budget},
	}

	r := router.NewBase(corsOrigins, nil, logger)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, http.StatusNotFound, "Not Found")
	})

	for _, route := range routes {
		proxy, err := newProxy(route.target, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure %s upstream: %w", route.prefix, err)
		}
		r.Handle(route.prefix, proxy)
		r.Handle(route.prefix+"/*", proxy)
	}

	return r, nil
}

func newProxy(target string, logger *logger.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", target)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			// CORS is answered by the gateway itself.
			for name := range resp.Header {
				if strings.HasPrefix(name, "Access-Control-") {
					resp.Header.Del(name)
				}
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("Gateway: upstream request failed",
				"upstream", u.Host,
				"path", r.URL.Path,
				"error", err.Error())
			handler.WriteError(w, http.StatusBadGateway, "Bad Gateway")
		},
	}, nil
}
