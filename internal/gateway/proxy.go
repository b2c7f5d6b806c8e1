package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/orderflow/platform/internal/domain/errors"
)

// Proxy forwards HTTP requests to backend service instances. Each
// configured instance is fronted by its own circuit breaker, so repeated
// connect/timeout failures trip that instance's breaker and the proxy
// fails fast with ErrBackendDown instead of piling up timeouts on a
// backend that is already down.
type Proxy struct {
	registry *Registry
	client   *http.Client
	breakers map[string]*gobreaker.CircuitBreaker[*proxyResponse]
}

type proxyResponse struct {
	status int
	body   []byte
}

func NewProxy(registry *Registry, proxyTimeout, breakerTimeout time.Duration, logger zerolog.Logger) *Proxy {
	breakers := make(map[string]*gobreaker.CircuitBreaker[*proxyResponse])
	for _, backends := range registry.All() {
		for _, b := range backends {
			name := b.Name
			breakers[name] = gobreaker.NewCircuitBreaker[*proxyResponse](gobreaker.Settings{
				Name:        name,
				MaxRequests: 5,
				Interval:    60 * time.Second,
				Timeout:     breakerTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
					return counts.Requests >= 5 && failureRatio >= 0.6
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Warn().Str("backend", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
				},
			})
		}
	}
	return &Proxy{
		registry: registry,
		client:   &http.Client{Timeout: proxyTimeout},
		breakers: breakers,
	}
}

// Forward selects a backend instance for (service, userID) and proxies r's
// method, body, query params and headers to it, stripping Host and adding
// X-Forwarded-For / X-Original-Path. path is the remainder of the URL after
// the /api/{service} prefix. Returns the backend's status code and raw
// response body, or a gateway-facing sentinel error per the connect/
// timeout/other mapping.
func (p *Proxy) Forward(ctx context.Context, service string, userID int64, r *http.Request, path string) (int, []byte, error) {
	backend, ok := p.registry.Select(service, userID)
	if !ok {
		return 0, nil, domainErrors.ErrUnknownService
	}

	var reqBody []byte
	if r.Body != nil {
		var err error
		reqBody, err = io.ReadAll(r.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("read request body: %w", err)
		}
	}

	breaker := p.breakers[backend.Name]
	targetURL := backend.URL + path
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	resp, err := breaker.Execute(func() (*proxyResponse, error) {
		req, err := http.NewRequestWithContext(ctx, r.Method, targetURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header = r.Header.Clone()
		req.Header.Del("Host")
		req.Header.Set("X-Forwarded-For", clientIP(r))
		req.Header.Set("X-Original-Path", r.URL.Path)

		backendResp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer backendResp.Body.Close()

		body, err := io.ReadAll(backendResp.Body)
		if err != nil {
			return nil, fmt.Errorf("read backend response: %w", err)
		}
		return &proxyResponse{status: backendResp.StatusCode, body: body}, nil
	})
	if err != nil {
		return 0, nil, mapProxyError(err)
	}
	return resp.status, resp.body, nil
}

// Statuses probes every configured backend's /health endpoint for
// GET /health/all, keyed by "service/instance-name". Each probe is bounded
// at 5 s.
func (p *Proxy) Statuses(ctx context.Context) map[string]string {
	statuses := make(map[string]string)
	for service, backends := range p.registry.All() {
		for _, b := range backends {
			key := service + "/" + b.Name
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, b.URL+"/health", nil)
			if err != nil {
				cancel()
				statuses[key] = "error"
				continue
			}
			resp, err := p.client.Do(req)
			if err != nil {
				cancel()
				statuses[key] = "down"
				continue
			}
			resp.Body.Close()
			cancel()
			if resp.StatusCode == http.StatusOK {
				statuses[key] = "up"
			} else {
				statuses[key] = "degraded"
			}
		}
	}
	return statuses
}

func mapProxyError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domainErrors.ErrBackendDown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainErrors.ErrBackendTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domainErrors.ErrBackendTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domainErrors.ErrBackendDown
	}
	return fmt.Errorf("proxy request: %w", err)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
