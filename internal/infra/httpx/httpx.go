package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

// Options 描述一个抓取会话的网络策略。
type Options struct {
	// ProxyURL 非空时所有请求走代理，且禁用 keep-alive（每请求新连接）。
	ProxyURL string
	// Timeout 是单次请求的总超时；<=0 时使用默认值。
	Timeout time.Duration
	// Limiter 在所有会话之间共享，用于限制整体请求速率；nil 表示不限速。
	// 会话重建时沿用同一个 Limiter，否则重建会“重置”限速。
	Limiter *rate.Limiter
	// UserAgent 为空时从内置 UA 池随机挑选（每个会话一个）。
	UserAgent string
}

// Session 是一个可丢弃的抓取会话：独立的 cookie jar + 连接池 + UA。
//
// 遇到 403 时上层会丢弃整个 Session 并新建一个，以甩掉会话级别的封禁。
// Session 不做重试（由 fetch 包统一实现）。
type Session struct {
	client  *resty.Client
	limiter *rate.Limiter
	ua      string
}

// NewSession 构造一个带 Cloudflare 绕过 transport 的 resty 会话。
func NewSession(opts Options) (*Session, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   4,
	}

	proxyURL := strings.TrimSpace(opts.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host：" + proxyURL)
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = globalUA.random()
	}

	client := resty.New()
	client.SetTransport(cloudflarebp.AddCloudFlareByPass(base))
	client.SetCookieJar(jar)
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", ua)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &Session{client: client, limiter: opts.Limiter, ua: ua}, nil
}

// Get 发起一次 GET，返回状态码与响应体。
// 非 2xx 不视为错误（状态码语义由调用方决定）；err 只表示传输层失败。
func (s *Session) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	if s == nil || s.client == nil {
		return 0, nil, errors.New("nil session")
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}
	res, err := s.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode(), res.Body(), nil
}

// UserAgent 返回该会话固定使用的 UA（用于日志定位）。
func (s *Session) UserAgent() string { return s.ua }

// NewLimiter 把“每秒请求数”转换为共享限速器；rps<=0 返回 nil（不限速）。
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	// 与 cloudflare-bp 的 TLS 指纹保持一致：只放桌面 Chrome/Firefox。
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
