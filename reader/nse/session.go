package nse

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/time/rate"

	appconfig "nseflow/config"
	"nseflow/logger"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Session holds the cookie-bearing HTTP client used against the NSE site.
// It is an explicit object owned by the caller; the scraper passes it into
// every operation instead of sharing process-global state.
type Session struct {
	cfg     appconfig.NSESourceConfig
	client  *http.Client
	headers map[string]string
	limiter *rate.Limiter
	log     *logger.Log
}

// NewSession builds a session with a fresh cookie jar and browser-like
// headers. One of the known Chrome user agents is picked per session.
func NewSession(cfg appconfig.NSESourceConfig) *Session {
	log := logger.GetLogger()

	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{
		MaxIdleConns:        cfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.ConnectionPool.IdleConnTimeout,
	}

	headers := map[string]string{
		"User-Agent":         userAgents[rand.Intn(len(userAgents))],
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Accept-Encoding":    "gzip, deflate, br",
		"Cache-Control":      "no-cache",
		"Pragma":             "no-cache",
		"Sec-Ch-Ua":          `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": `"Windows"`,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-origin",
		"X-Requested-With":   "XMLHttpRequest",
		"Referer":            cfg.BaseURL + cfg.ListingPath,
	}

	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateLimit.BurstSize
	if burst < 1 {
		burst = 1
	}

	session := &Session{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		headers: headers,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	log.WithComponent("nse_session").WithFields(logger.Fields{
		"base_url":           cfg.BaseURL,
		"timeout":            cfg.Timeout,
		"max_conns_per_host": cfg.ConnectionPool.MaxConnsPerHost,
	}).Info("nse session initialized")

	return session
}

// Warmup visits the homepage and the insider-trading listing page to pick up
// the cookies the API expects, pausing between pages like a browser would.
// A CookieError is returned when the listing page cannot be reached; the
// fetch may still succeed without it.
func (s *Session) Warmup(ctx context.Context) error {
	log := s.log.WithComponent("nse_session").WithFields(logger.Fields{"operation": "warmup"})
	log.Info("getting session cookies")

	status, err := s.visit(ctx, s.cfg.BaseURL)
	if err != nil {
		return &CookieError{Page: "homepage", Err: err}
	}
	log.WithFields(logger.Fields{"status": status}).Info("homepage visited")

	if err := s.pause(ctx, s.cfg.Bootstrap.PageMinDelay, s.cfg.Bootstrap.PageMaxDelay); err != nil {
		return &CookieError{Page: "homepage", Err: err}
	}

	status, err = s.visit(ctx, s.cfg.BaseURL+s.cfg.ListingPath)
	if err != nil {
		return &CookieError{Page: "listing", Err: err}
	}
	log.WithFields(logger.Fields{"status": status}).Info("listing page visited")

	if status != http.StatusOK {
		return &CookieError{Page: "listing", Err: fmt.Errorf("unexpected status %d", status)}
	}

	return s.pause(ctx, s.cfg.Bootstrap.PageMinDelay, s.cfg.Bootstrap.PageMaxDelay)
}

// PacingDelay sleeps for the configured randomized interval before an API
// call. The delay lowers the chance of anti-bot detection; it carries no
// correctness weight.
func (s *Session) PacingDelay(ctx context.Context) error {
	return s.pause(ctx, s.cfg.Bootstrap.PreFetchMinDelay, s.cfg.Bootstrap.PreFetchMaxDelay)
}

func (s *Session) visit(ctx context.Context, url string) (int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	s.applyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (s *Session) applyHeaders(req *http.Request) {
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
}

func (s *Session) pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
