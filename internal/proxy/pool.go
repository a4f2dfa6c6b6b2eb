package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// FailureCooldown is how long a failed proxy is skipped
const FailureCooldown = 5 * time.Minute

// ProxyPool manages a list of proxies with rotation and health checking
type ProxyPool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
}

// NewProxyPool validates the proxy URLs and creates a pool
func NewProxyPool(proxies []string) (*ProxyPool, error) {
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", p)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}
	return &ProxyPool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}, nil
}

// Len returns the number of configured proxies
func (p *ProxyPool) Len() int {
	return len(p.proxies)
}

// GetNext returns the next healthy proxy from the pool
func (p *ProxyPool) GetNext() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < FailureCooldown {
				if p.index == start {
					// Every proxy is cooling down, use this one anyway
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed marks a proxy as failed so it will be skipped for a while
func (p *ProxyPool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy
func (p *ProxyPool) MarkHealthy(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// ProxyFunc returns a function for http.Transport.Proxy that rotates through
// the pool. The chosen proxy is recorded in contexts prepared with Track.
func (p *ProxyPool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		raw := p.GetNext()
		if raw == "" {
			return nil, nil
		}
		if c, ok := req.Context().Value(choiceKey{}).(*choice); ok {
			c.mu.Lock()
			c.proxy = raw
			c.mu.Unlock()
		}
		return url.Parse(raw)
	}
}

type choiceKey struct{}

type choice struct {
	mu    sync.Mutex
	proxy string
}

// Track prepares ctx to record which proxy served the request made with it
func Track(ctx context.Context) context.Context {
	return context.WithValue(ctx, choiceKey{}, &choice{})
}

// Chosen returns the proxy recorded in a tracked context, or ""
func Chosen(ctx context.Context) string {
	c, ok := ctx.Value(choiceKey{}).(*choice)
	if !ok {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxy
}
