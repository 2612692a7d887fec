package httpsession

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/warpmc/go-warpcore/config"
)

// Backoff 指数退避参数
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

// BackoffFromConfig 从重试配置构建退避参数
func BackoffFromConfig(c config.RetryConfig) Backoff {
	return Backoff{
		Base:   c.BaseBackoff.Duration(),
		Max:    c.MaxBackoff.Duration(),
		Jitter: c.Jitter.Duration(),
	}
}

// BaseDelay 第 n 次尝试失败后的退避（不含抖动）
//
//	min(Max, Base × 2^(n-1))
//
// n 从 1 开始；结果随 n 单调不减，到达 Max 后保持不变。
func (b Backoff) BaseDelay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	if b.Base <= 0 {
		return 0
	}
	d := b.Base
	for i := 1; i < n; i++ {
		if (b.Max > 0 && d >= b.Max) || d > time.Duration(1<<62) {
			break
		}
		d *= 2
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Delay 第 n 次尝试失败后的退避，加上 [0, Jitter] 的随机抖动
func (b Backoff) Delay(n int) time.Duration {
	d := b.BaseDelay(n)
	if b.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.Jitter) + 1))
	}
	return d
}

// parseRetryAfter 解析 Retry-After（秒数或 HTTP-date），结果不超过 maxWait
func parseRetryAfter(value string, now time.Time, maxWait time.Duration) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs != secs || secs < 0 {
			return 0, false
		}
		// 整秒
		d = time.Duration(int64(secs)) * time.Second
		if secs > maxWait.Seconds() {
			d = maxWait
		}
	} else if t, err := http.ParseTime(value); err == nil {
		d = t.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return 0, false
	}

	if d > maxWait {
		d = maxWait
	}
	return d, true
}
