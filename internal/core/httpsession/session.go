package httpsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
	"github.com/warpmc/go-warpcore/pkg/types"
)

var logger = log.Logger("core/httpsession")

var _ pkgif.HTTPSession = (*Session)(nil)

// RequestIDHeader 请求关联 ID，调用方未提供时自动生成，同一次调用的所有尝试共用
const RequestIDHeader = "X-Request-ID"

// maxDrainBytes 丢弃响应体时最多读取的字节数，便于连接复用
const maxDrainBytes = 64 << 10

// proxyContextKey 请求上下文中的代理
type proxyContextKey struct{}

// Session 弹性 HTTP 会话
//
// 一次逻辑调用内的尝试严格串行；不同调用可以并发。
type Session struct {
	cfg     config.HTTPConfig
	backoff Backoff
	urls    *URLManager
	proxies pkgif.ProxyManager
	client  *http.Client
	clock   clock.Clock
	sleep   func(ctx context.Context, d time.Duration) error
	metrics *metrics.Metrics

	limiters map[string]*rate.Limiter

	mu         sync.RWMutex
	refreshers map[string]pkgif.TokenRefresher
}

// Option 会话选项
type Option func(*Session)

// WithProxyManager 设置代理池
func WithProxyManager(pm pkgif.ProxyManager) Option {
	return func(s *Session) {
		s.proxies = pm
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithClock 设置时钟（退避计时与 Retry-After 日期解析）
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSleep 替换退避睡眠函数
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) {
		s.sleep = fn
	}
}

// WithRoundTripper 替换底层传输，替换后不再按上下文路由代理
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(s *Session) {
		if rt != nil {
			s.client.Transport = rt
		}
	}
}

// New 创建会话
func New(cfg config.HTTPConfig, services map[string]config.ServiceConfig, opts ...Option) (*Session, error) {
	urls, err := NewURLManager(services)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:     cfg,
		backoff: BackoffFromConfig(cfg.Retry),
		urls:    urls,
		client: &http.Client{
			Transport: newTransport(cfg),
			Timeout:   cfg.Timeout.Duration(),
		},
		clock:      clock.New(),
		limiters:   make(map[string]*rate.Limiter),
		refreshers: make(map[string]pkgif.TokenRefresher),
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, svc := range services {
		rl := svc.RateLimits
		if rl.RequestsPerSecond > 0 {
			s.limiters[name] = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), max(rl.Burst, 1))
		}
	}
	return s, nil
}

// newTransport 所有代理共享的连接池，代理按请求上下文选择
func newTransport(cfg config.HTTPConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = proxyFromContext
	t.MaxIdleConns = cfg.MaxIdleConns
	t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	return t
}

func proxyFromContext(req *http.Request) (*url.URL, error) {
	if pair, ok := req.Context().Value(proxyContextKey{}).(types.ProxyPair); ok && !pair.IsZero() {
		return pair.URLFor(req.URL.Scheme)
	}
	return http.ProxyFromEnvironment(req)
}

// URLs 返回 URL 管理器
func (s *Session) URLs() *URLManager {
	return s.urls
}

// Close 关闭空闲连接
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// RegisterTokenRefresher 注册 401 刷新回调；传 nil 移除
func (s *Session) RegisterTokenRefresher(service string, refresher pkgif.TokenRefresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if refresher == nil {
		delete(s.refreshers, service)
		return
	}
	s.refreshers[service] = refresher
}

func (s *Session) refresher(service string) pkgif.TokenRefresher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshers[service]
}

// Get 发起 GET 请求
//
// 成功时调用方负责关闭 Body；失败时返回 *types.NetError。
func (s *Session) Get(ctx context.Context, service, path string, opts ...pkgif.RequestOption) (*http.Response, error) {
	return s.request(ctx, http.MethodGet, service, path, opts)
}

// Post 发起 POST 请求
func (s *Session) Post(ctx context.Context, service, path string, opts ...pkgif.RequestOption) (*http.Response, error) {
	return s.request(ctx, http.MethodPost, service, path, opts)
}

// GetJSON 发起 GET 请求并把响应体解码到 out
func (s *Session) GetJSON(ctx context.Context, service, path string, out any, opts ...pkgif.RequestOption) error {
	resp, err := s.Get(ctx, service, path, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &types.NetError{Kind: types.KindNetError, Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

// request 执行一次逻辑调用
//
//	Attempt(n) → Success
//	           → Retry → backoff → Attempt(n+1)
//	           → Refresh → Attempt(n)（每次调用最多一次）
//	           → Terminal
func (s *Session) request(ctx context.Context, method, service, path string, opts []pkgif.RequestOption) (*http.Response, error) {
	o := applyOptions(opts)

	target, header, err := s.urls.Build(service, path, o.Params)
	if err != nil {
		return nil, s.fail(service, types.NewNetError(types.KindNetError, err))
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, s.fail(service, types.NewNetError(types.KindNetError, err))
	}
	domain := u.Hostname()

	for k, vs := range o.Headers {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if header.Get("User-Agent") == "" && s.cfg.UserAgent != "" {
		header.Set("User-Agent", s.cfg.UserAgent)
	}
	if header.Get(RequestIDHeader) == "" {
		header.Set(RequestIDHeader, uuid.NewString())
	}

	var body []byte
	if o.JSONBody != nil {
		body, err = json.Marshal(o.JSONBody)
		if err != nil {
			return nil, s.fail(service, types.NewNetError(types.KindNetError, fmt.Errorf("encode json body: %w", err)))
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	allowed := make(map[int]struct{}, len(o.AllowedStatuses))
	for _, st := range o.AllowedStatuses {
		allowed[st] = struct{}{}
	}

	maxAttempts := max(s.cfg.Retry.MaxAttempts, 1)
	isAuth := s.urls.IsAuthPath(service, path)
	limiter := s.limiters[service]
	refreshed := false

	for attempt := 1; ; {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, s.cancelled(service, err)
			}
		}

		pair := s.choose(domain)
		resp, err := s.send(ctx, method, target, header, body, pair, service)

		var out outcome
		if err != nil {
			if ctx.Err() != nil {
				return nil, s.cancelled(service, ctx.Err())
			}
			out = classifyTransport(err)
		} else {
			out = classifyStatus(resp.StatusCode, allowed)
		}

		switch out.kind {
		case outcomeSuccess:
			s.markGood(pair)
			s.metrics.HTTPRequest(service, outcomeSuccess.String())
			return resp, nil

		case outcomeRefresh:
			refresher := s.refresher(service)
			if refresher == nil || refreshed || isAuth {
				drain(resp)
				return nil, s.fail(service, out.err)
			}
			refreshed = true
			extra, rerr := refresher.Refresh(ctx, service, s, resp)
			drain(resp)
			if rerr != nil {
				logger.Warn("令牌刷新失败", "service", service, "err", rerr)
				return nil, s.fail(service, &types.NetError{
					Kind:    types.KindUnauthorized,
					Status:  http.StatusUnauthorized,
					Message: "token refresh failed: " + rerr.Error(),
					Err:     rerr,
				})
			}
			if extra == nil {
				return nil, s.fail(service, out.err)
			}
			for k, vs := range extra {
				header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
			}
			logger.Debug("令牌已刷新，重试请求", "service", service, "attempt", attempt)
			continue

		case outcomeTerminal:
			drain(resp)
			return nil, s.fail(service, out.err)
		}

		if out.markBad {
			s.markBad(pair)
		}
		var retryAfter time.Duration
		if out.honorRetryAfter && resp != nil && s.urls.ShouldRespectRetryAfter(service) {
			if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), s.clock.Now(), s.cfg.RetryAfterCap.Duration()); ok {
				retryAfter = d
			}
		}
		drain(resp)

		if attempt >= maxAttempts {
			logger.Warn("请求重试耗尽", "service", service, "path", path, "attempts", attempt, "err", out.err)
			return nil, s.fail(service, out.err)
		}

		delay := retryAfter + s.backoff.Delay(attempt)
		logger.Debug("请求重试",
			"service", service,
			"path", path,
			"attempt", attempt,
			"reason", out.reason(),
			"retry_after", retryAfter,
			"delay", delay)
		s.metrics.HTTPRetry(service, out.reason())
		if err := s.wait(ctx, delay); err != nil {
			return nil, s.cancelled(service, err)
		}
		attempt++
	}
}

// send 发起单次尝试，代理通过上下文传给传输层
func (s *Session) send(ctx context.Context, method, target string, header http.Header, body []byte, pair types.ProxyPair, service string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.WithValue(ctx, proxyContextKey{}, pair), method, target, rd)
	if err != nil {
		return nil, err
	}
	req.Header = header.Clone()

	start := time.Now()
	resp, err := s.client.Do(req)
	s.metrics.HTTPAttempt(service, time.Since(start))
	return resp, err
}

func (s *Session) choose(domain string) types.ProxyPair {
	if s.proxies == nil || !s.proxies.EnabledForDomain(domain) {
		return types.ProxyPair{}
	}
	pair, _ := s.proxies.Choose(domain)
	return pair
}

func (s *Session) markGood(pair types.ProxyPair) {
	if s.proxies != nil && !pair.IsZero() {
		s.proxies.MarkGood(pair)
	}
}

func (s *Session) markBad(pair types.ProxyPair) {
	if s.proxies != nil && !pair.IsZero() {
		s.proxies.MarkBad(pair)
	}
}

// wait 睡眠 d，ctx 结束时提前返回
func (s *Session) wait(ctx context.Context, d time.Duration) error {
	if s.sleep != nil {
		return s.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Session) fail(service string, ne *types.NetError) error {
	s.metrics.HTTPRequest(service, ne.Kind.String())
	return ne
}

func (s *Session) cancelled(service string, err error) error {
	s.metrics.HTTPRequest(service, "cancelled")
	return &types.NetError{Kind: types.KindNetError, Message: "request cancelled: " + err.Error(), Err: err}
}

// drain 读取并关闭响应体
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
