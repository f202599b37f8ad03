package nse

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"nseflow/logger"
)

// QueryDateLayout is the dd-mm-yyyy form the corporates-pit endpoint
// expects for its window parameters.
const QueryDateLayout = "02-01-2006"

// FetchWindow requests insider-trading disclosures for the given date range
// and returns the raw rows from the response's "data" list. An empty list is
// a normal outcome and yields an empty slice with a nil error; every other
// irregularity is a FetchError.
func (s *Session) FetchWindow(ctx context.Context, from, to time.Time) ([]map[string]any, error) {
	log := s.log.WithComponent("nse_fetch").WithFields(logger.Fields{
		"from_date": from.Format(QueryDateLayout),
		"to_date":   to.Format(QueryDateLayout),
	})

	query := url.Values{}
	query.Set("index", s.cfg.Index)
	query.Set("from_date", from.Format(QueryDateLayout))
	query.Set("to_date", to.Format(QueryDateLayout))
	apiURL := s.cfg.BaseURL + s.cfg.APIPath + "?" + query.Encode()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Op: "rate_wait", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, &FetchError{Op: "build_request", Err: err}
	}
	s.applyHeaders(req)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Op: "request", Err: err}
	}
	defer resp.Body.Close()
	logger.LogPerformanceEntry(log, "nse_fetch", "api_request", time.Since(start), nil)

	log.WithFields(logger.Fields{"status": resp.StatusCode}).Info("api response received")

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Op: "status", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, &FetchError{Op: "decode_body", Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		// Anti-bot detection serves an HTML challenge page instead of data.
		s.dumpDebugBody(body)
		return nil, &FetchError{Op: "content_type", Err: fmt.Errorf("response is not JSON (content type %q)", contentType)}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FetchError{Op: "parse_json", Err: err}
	}
	rawData, ok := envelope["data"]
	if !ok {
		return nil, &FetchError{Op: "parse_json", Err: fmt.Errorf("response has no \"data\" field")}
	}

	// A present-but-null "data" means the same as an empty list: nothing in
	// the window. Only a missing key signals a malformed response.
	var rows []map[string]any
	if err := json.Unmarshal(rawData, &rows); err != nil {
		return nil, &FetchError{Op: "parse_json", Err: err}
	}
	if len(rows) == 0 {
		log.Info("no insider trading data found for the window")
		return []map[string]any{}, nil
	}

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("fetched insider trading rows")
	logger.IncrementRowsFetched(len(rows), len(body))
	logger.LogDataFlowEntry(log, "nse_api", "normalizer", len(rows), "disclosure_rows")

	return rows, nil
}

// decodeBody returns the decompressed response body. Setting Accept-Encoding
// explicitly disables the transport's transparent decompression, and NSE
// occasionally answers with Brotli regardless of what was requested, so all
// three schemes are handled here.
func decodeBody(resp *http.Response) ([]byte, error) {
	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))

	var reader io.Reader = resp.Body
	switch {
	case strings.Contains(encoding, "br"):
		reader = brotli.NewReader(resp.Body)
	case strings.Contains(encoding, "gzip"):
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decompression: %w", err)
		}
		defer gz.Close()
		reader = gz
	case strings.Contains(encoding, "deflate"):
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompression (%s): %w", encoding, err)
	}
	return body, nil
}

// dumpDebugBody saves a non-JSON response for offline inspection.
func (s *Session) dumpDebugBody(body []byte) {
	if s.cfg.DebugDumpFile == "" {
		return
	}
	if err := os.WriteFile(s.cfg.DebugDumpFile, body, 0644); err != nil {
		s.log.WithComponent("nse_fetch").WithError(err).Warn("failed to save debug response")
		return
	}
	s.log.WithComponent("nse_fetch").WithFields(logger.Fields{
		"file": s.cfg.DebugDumpFile,
	}).Warn("non-JSON response saved for inspection")
}
