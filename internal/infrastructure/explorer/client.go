package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/metrics"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/retry"

	"go.uber.org/zap"
)

// Provider labels used in logs and metrics
const (
	ProviderCompat = "compat"
	ProviderRestV2 = "restv2"
)

var errNotFound = stderrors.New("not found")

// Client talks to a Blockscout-style explorer over its compat and REST v2 APIs.
// It implements CompatTxLister, RestTxPager, LogFetcher and TokenFetcher.
type Client struct {
	httpClient   *http.Client
	compatURL    string
	restURL      string
	userAgent    string
	timeout      time.Duration
	tokenTimeout time.Duration
	policy       retry.Policy
	logger       *logger.Logger
}

var (
	_ service.CompatTxLister = (*Client)(nil)
	_ service.RestTxPager    = (*Client)(nil)
	_ service.LogFetcher     = (*Client)(nil)
	_ service.TokenFetcher   = (*Client)(nil)
)

// NewClient creates new explorer client
func NewClient(cfg *config.ExplorerConfig, log *logger.Logger) *Client {
	policy := retry.DefaultPolicy()
	if cfg.RetryAttempts > 0 {
		policy.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMultiplier >= 1 {
		policy.Multiplier = cfg.RetryMultiplier
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		compatURL:    cfg.CompatURL(),
		restURL:      cfg.RestURL(),
		userAgent:    cfg.UserAgent,
		timeout:      cfg.RequestTimeout,
		tokenTimeout: cfg.TokenInfoTimeout,
		policy:       policy,
		logger:       log.WithComponent("explorer-client"),
	}
}

// WithRetry returns a copy of the client using a different retry policy and per-request timeout
func (c *Client) WithRetry(policy retry.Policy, timeout time.Duration) *Client {
	cp := *c
	cp.policy = policy
	if timeout > 0 {
		cp.timeout = timeout
		cp.tokenTimeout = timeout
	}
	return &cp
}

type compatEnvelope struct {
	Status  entity.FlexString `json:"status"`
	Message entity.FlexString `json:"message"`
	Result  json.RawMessage   `json:"result"`
}

// ListCompatTransactions calls module=account&action=txlist
func (c *Client) ListCompatTransactions(ctx context.Context, q service.CompatTxListQuery) ([]entity.CompatTxRow, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", q.Address)
	params.Set("sort", defaultString(q.Sort, service.SortDesc))
	params.Set("page", strconv.Itoa(max(q.Page, 1)))
	params.Set("offset", strconv.Itoa(max(q.Offset, 1)))
	if q.FromMs > 0 {
		params.Set("starttimestamp", strconv.FormatInt(q.FromMs/1000, 10))
	}
	if q.ToMs > 0 {
		params.Set("endtimestamp", strconv.FormatInt(q.ToMs/1000, 10))
	}

	var env compatEnvelope
	err := c.fetch(ctx, ProviderCompat, c.compatURL+"?"+params.Encode(), c.timeout, func(body []byte) error {
		if err := json.Unmarshal(body, &env); err != nil {
			return err
		}
		// a string result carries an upstream message instead of rows
		trimmed := bytes.TrimSpace(env.Result)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var msg string
			_ = json.Unmarshal(trimmed, &msg)
			if isRateLimitMessage(msg) || isRateLimitMessage(env.Message.String()) {
				return errors.NewRateLimitedError(ProviderCompat, fmt.Errorf("%s", msg))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(env.Result)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []entity.CompatTxRow{}, nil
	}
	var rows []entity.CompatTxRow
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, errors.NewUpstreamError(ProviderCompat, err)
	}
	return rows, nil
}

// ListRestTransactions fetches one page of /addresses/{a}/transactions
func (c *Client) ListRestTransactions(ctx context.Context, address string, page, pageSize int) ([]entity.RestTxRow, error) {
	params := url.Values{}
	params.Set("filter", "to|from")
	params.Set("items", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/addresses/%s/transactions?%s", c.restURL, address, params.Encode())

	var resp struct {
		Items []entity.RestTxRow `json:"items"`
	}
	if err := c.getJSON(ctx, ProviderRestV2, endpoint, c.timeout, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []entity.RestTxRow{}, nil
	}
	return resp.Items, nil
}

// GetTransactionLogs fetches /transactions/{h}/logs; an unknown hash yields no logs
func (c *Client) GetTransactionLogs(ctx context.Context, txHash string) ([]entity.TxLog, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s/logs", c.restURL, txHash)

	var resp struct {
		Items []entity.RestLogItem `json:"items"`
	}
	err := c.getJSON(ctx, ProviderRestV2, endpoint, c.timeout, &resp)
	if stderrors.Is(err, errNotFound) {
		return []entity.TxLog{}, nil
	}
	if err != nil {
		return nil, err
	}

	logs := make([]entity.TxLog, 0, len(resp.Items))
	for _, item := range resp.Items {
		logs = append(logs, normalizeLog(item))
	}
	return logs, nil
}

// GetToken fetches /tokens/{a}; an unknown token yields an info with only the address set
func (c *Client) GetToken(ctx context.Context, address string) (entity.TokenInfo, error) {
	address = strings.ToLower(address)
	endpoint := fmt.Sprintf("%s/tokens/%s", c.restURL, address)

	var resp entity.RestTokenInfo
	err := c.getJSON(ctx, ProviderRestV2, endpoint, c.tokenTimeout, &resp)
	if stderrors.Is(err, errNotFound) {
		return entity.TokenInfo{Address: address}, nil
	}
	if err != nil {
		return entity.TokenInfo{Address: address}, err
	}

	resolved := string(resp.Address)
	if resolved == "" {
		resolved = string(resp.AddressHash)
	}
	if resolved == "" {
		resolved = address
	}
	return entity.TokenInfo{
		Address: strings.ToLower(resolved),
		Name:    resp.Name.String(),
		Symbol:  resp.Symbol.String(),
		Type:    resp.Type.String(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, provider, endpoint string, timeout time.Duration, out any) error {
	return c.fetch(ctx, provider, endpoint, timeout, func(body []byte) error {
		return json.Unmarshal(body, out)
	})
}

// fetch issues a GET under the retry policy. decode runs on every 2xx body; a
// rate-limited error from decode is retried like an HTTP 429.
func (c *Client) fetch(ctx context.Context, provider, endpoint string, timeout time.Duration, decode func([]byte) error) error {
	policy := c.policy
	policy.Retryable = errors.IsRateLimited
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		metrics.UpstreamRetries.WithLabelValues(provider).Inc()
		c.logger.Debug("Retrying explorer request",
			zap.String("provider", provider),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return c.fetchOnce(ctx, provider, endpoint, timeout, decode)
	})
	if err != nil && ctx.Err() != nil {
		return errors.NewCancelledError(ctx.Err())
	}
	return err
}

func (c *Client) fetchOnce(ctx context.Context, provider, endpoint string, timeout time.Duration, decode func([]byte) error) error {
	start := time.Now()
	defer func() {
		metrics.UpstreamLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}()

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewUpstreamError(provider, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		if ctx.Err() != nil {
			return errors.NewCancelledError(ctx.Err())
		}
		return errors.NewUpstreamError(provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.UpstreamRequests.WithLabelValues(provider, "rate_limited").Inc()
		return errors.NewRateLimitedError(provider, fmt.Errorf("http 429, retry after: %s", resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode == http.StatusNotFound {
		metrics.UpstreamRequests.WithLabelValues(provider, "not_found").Inc()
		return errNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		return errors.NewUpstreamError(provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		return errors.NewUpstreamError(provider, fmt.Errorf("http %d", resp.StatusCode))
	}

	if err := decode(body); err != nil {
		if errors.IsRateLimited(err) {
			metrics.UpstreamRequests.WithLabelValues(provider, "rate_limited").Inc()
			return err
		}
		metrics.UpstreamRequests.WithLabelValues(provider, "malformed").Inc()
		return errors.NewUpstreamError(provider, err)
	}

	metrics.UpstreamRequests.WithLabelValues(provider, "ok").Inc()
	return nil
}

func normalizeLog(item entity.RestLogItem) entity.TxLog {
	topics := make([]string, 0, len(item.Topics))
	for _, t := range item.Topics {
		if t == nil || *t == "" {
			continue
		}
		topics = append(topics, strings.ToLower(*t))
	}
	data := item.Data.String()
	if data == "" {
		data = "0x"
	}
	return entity.TxLog{
		Address: strings.ToLower(string(item.Address)),
		Topics:  topics,
		Data:    data,
	}
}

func isRateLimitMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "rate limit") || strings.Contains(s, "too many requests")
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
