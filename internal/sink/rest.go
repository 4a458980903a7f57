package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/pkg/logging"
)

const (
	defaultTable   = "bookings"
	maxErrorBody   = 300
	networkFailure = "network request failed"
)

// ErrMissingEndpoint is returned by NewRESTSink when no base URL is configured.
var ErrMissingEndpoint = errors.New("sink: endpoint URL is required")

// RESTConfig addresses a PostgREST (Supabase) table.
type RESTConfig struct {
	BaseURL string
	APIKey  string
	Table   string
	// Timeout bounds a single insert; zero disables it.
	Timeout time.Duration
}

// RESTSink inserts rows through a PostgREST endpoint.
type RESTSink struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *logging.Logger
}

// NewRESTSink constructs a REST sink. A blank base URL is a configuration error.
func NewRESTSink(cfg RESTConfig, logger *logging.Logger) (*RESTSink, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingEndpoint
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("sink: parse endpoint: %w", err)
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultTable
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RESTSink{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   base + "/rest/v1/" + url.PathEscape(table),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

// Insert posts one row. Every failure comes back as *RemoteError.
func (s *RESTSink) Insert(ctx context.Context, req booking.Request) error {
	body, err := json.Marshal([]booking.Payload{req.Payload()})
	if err != nil {
		return remoteErr("", 0, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return remoteErr("", 0, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Prefer", "return=minimal")
	if s.apiKey != "" {
		httpReq.Header.Set("apikey", s.apiKey)
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		s.logger.Warn("sink request failed", "error", err)
		return remoteErr(networkFailure, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return remoteErr(networkFailure, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(respBody)
		s.logger.Warn("sink non-2xx response", "status", resp.StatusCode, "message", msg)
		return remoteErr(msg, resp.StatusCode, fmt.Errorf("sink returned %d", resp.StatusCode))
	}
	return nil
}

// errorMessage pulls PostgREST's "message" field, falling back to the raw body.
func errorMessage(body []byte) string {
	var wrapped struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		for _, candidate := range []string{wrapped.Message, wrapped.Msg, wrapped.Error} {
			if strings.TrimSpace(candidate) != "" {
				return candidate
			}
		}
		return ""
	}
	msg := strings.TrimSpace(strings.ToValidUTF8(string(body), ""))
	if len(msg) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
