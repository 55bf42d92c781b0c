// Package health checks whether a target environment's UI and API answer.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"qapages/config"
	"qapages/errors"
)

// Environment is a named target with its frontend and API base URLs.
type Environment struct {
	Name       string
	BaseURL    string
	APIBaseURL string
}

// FromConfig resolves the active environment from configuration.
func FromConfig(cfg *config.Config) (Environment, error) {
	env, err := cfg.Environment()
	if err != nil {
		return Environment{}, err
	}
	return Environment{Name: cfg.Env, BaseURL: env.BaseURL, APIBaseURL: env.APIBaseURL}, nil
}

// DefaultEndpoints are the API paths probed by a comprehensive check.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		"auth":     "/api/auth/login",
		"flights":  "/api/flight/search-request",
		"packages": "/api/package/all",
		"visa":     "/api/visa/create",
	}
}

// Endpoints answered with GET. Everything else is probed with HEAD.
var getEndpoints = map[string]bool{ //nolint:gochecknoglobals
	"/api/auth/login":  true,
	"/api/package/all": true,
}

// EndpointStatus is the outcome of one endpoint in a comprehensive check.
type EndpointStatus struct {
	Healthy bool   `json:"healthy"`
	URL     string `json:"endpoint"`
}

// Checker probes an environment with retries. Any status below 500 counts as
// accessible. Retries wait Backoff times the attempt number.
type Checker struct {
	Env      Environment
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
	Logger   zerolog.Logger

	// HTTPClient is the underlying transport; tests inject httptest clients.
	HTTPClient *http.Client
}

// NewChecker builds a checker from the health configuration.
func NewChecker(env Environment, cfg config.HealthConfig, logger zerolog.Logger) *Checker {
	return &Checker{
		Env:      env,
		Attempts: cfg.Attempts,
		Timeout:  cfg.Timeout,
		Backoff:  cfg.Backoff,
		Logger:   logger.With().Str("component", "health").Str("env", env.Name).Logger(),
	}
}

// APIAccessible probes endpoint on the API base URL.
func (c *Checker) APIAccessible(ctx context.Context, endpoint string) bool {
	return c.apiAccessible(ctx, endpoint, c.Attempts)
}

// UIAccessible probes the frontend base URL.
func (c *Checker) UIAccessible(ctx context.Context) bool {
	if c.Env.BaseURL == "" {
		c.Logger.Error().Msg("no base url configured")
		return false
	}
	return c.probe(ctx, http.MethodGet, c.Env.BaseURL, c.Attempts)
}

// Require returns ErrEnvUnreachable unless the UI (ui true) or the API
// endpoint answers.
func (c *Checker) Require(ctx context.Context, ui bool, endpoint string) error {
	if ui {
		if !c.UIAccessible(ctx) {
			return fmt.Errorf("%w: %s UI at %s", errors.ErrEnvUnreachable, c.Env.Name, c.Env.BaseURL)
		}
		return nil
	}
	if !c.APIAccessible(ctx, endpoint) {
		return fmt.Errorf("%w: %s API at %s", errors.ErrEnvUnreachable, c.Env.Name, c.Env.APIBaseURL+endpoint)
	}
	return nil
}

// WaitFor polls the API with single attempts until it answers, the timeout
// passes or ctx is done. The wait grows by interval after every miss.
func (c *Checker) WaitFor(ctx context.Context, endpoint string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		if c.apiAccessible(ctx, endpoint, 1) {
			c.Logger.Info().Msg("api environment is accessible")
			return nil
		}
		wait := interval * time.Duration(attempt)
		c.Logger.Info().Int("attempt", attempt).Dur("wait", wait).Msg("waiting for api environment")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s not accessible within %s", errors.ErrEnvUnreachable, c.Env.Name, timeout)
		case <-time.After(wait):
		}
	}
}

// Comprehensive checks every named endpoint with two attempts each.
func (c *Checker) Comprehensive(ctx context.Context, endpoints map[string]string) map[string]EndpointStatus {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]EndpointStatus, len(endpoints))
	var unhealthy []string
	for _, name := range names {
		ep := endpoints[name]
		ok := c.apiAccessible(ctx, ep, min(c.Attempts, 2))
		out[name] = EndpointStatus{Healthy: ok, URL: c.Env.APIBaseURL + ep}
		if !ok {
			unhealthy = append(unhealthy, name)
		}
	}

	if len(unhealthy) == 0 {
		c.Logger.Info().Int("endpoints", len(out)).Msg("all api services are healthy")
	} else {
		c.Logger.Warn().Str("unhealthy", strings.Join(unhealthy, ", ")).Msg("unhealthy api services")
	}
	return out
}

func (c *Checker) apiAccessible(ctx context.Context, endpoint string, attempts int) bool {
	if c.Env.APIBaseURL == "" {
		c.Logger.Error().Msg("no api base url configured")
		return false
	}
	method := http.MethodHead
	if getEndpoints[endpoint] {
		method = http.MethodGet
	}
	return c.probe(ctx, method, c.Env.APIBaseURL+endpoint, attempts)
}

func (c *Checker) probe(ctx context.Context, method, url string, attempts int) bool {
	client := c.client(attempts)
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		c.Logger.Error().Err(err).Str("url", url).Msg("bad health check url")
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		c.Logger.Error().Err(err).Str("url", url).Int("attempts", attempts).Msg("not accessible")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusInternalServerError {
		c.Logger.Info().Str("url", url).Int("status", resp.StatusCode).Msg("accessible")
		return true
	}
	c.Logger.Warn().Str("url", url).Int("status", resp.StatusCode).Int("attempts", attempts).Msg("not accessible")
	return false
}

func (c *Checker) client(attempts int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	if c.HTTPClient != nil {
		hc := *c.HTTPClient
		rc.HTTPClient = &hc
	}
	if c.Timeout > 0 {
		rc.HTTPClient.Timeout = c.Timeout
	}
	rc.RetryMax = max(attempts-1, 0)
	rc.RetryWaitMin = c.Backoff
	rc.RetryWaitMax = c.Backoff
	rc.Backoff = retryablehttp.LinearJitterBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = LeveledLogger{Logger: c.Logger}
	return rc
}
