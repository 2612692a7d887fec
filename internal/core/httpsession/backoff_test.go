package httpsession

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warpmc/go-warpcore/config"
)

// TestBackoff_GrowthAndPlateau 不含抖动的退避严格递增直到上限，之后保持不变
func TestBackoff_GrowthAndPlateau(t *testing.T) {
	b := BackoffFromConfig(config.DefaultHTTPConfig().Retry)

	want := []time.Duration{
		300 * time.Millisecond,
		600 * time.Millisecond,
		1200 * time.Millisecond,
		2400 * time.Millisecond,
		4800 * time.Millisecond,
		6 * time.Second,
		6 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, b.BaseDelay(i+1), "n=%d", i+1)
	}

	reachedMax := false
	prev := time.Duration(0)
	for n := 1; n <= 100; n++ {
		d := b.BaseDelay(n)
		if reachedMax {
			assert.Equal(t, b.Max, d)
		} else {
			assert.Greater(t, d, prev)
		}
		reachedMax = d == b.Max
		prev = d
	}
}

func TestBackoff_Jitter(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: time.Second, Jitter: 50 * time.Millisecond}
	for i := 0; i < 200; i++ {
		d := b.Delay(2)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}

	assert.Equal(t, 100*time.Millisecond, Backoff{Base: 100 * time.Millisecond}.Delay(1), "无上限无抖动")
	assert.Equal(t, 800*time.Millisecond, Backoff{Base: 100 * time.Millisecond}.BaseDelay(4))
	assert.Zero(t, Backoff{}.Delay(3))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	capped := 30 * time.Second

	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{"整数秒", "5", 5 * time.Second, true},
		{"小数取整", "1.9", time.Second, true},
		{"超过上限", "120", capped, true},
		{"HTTP 日期", now.Add(10 * time.Second).Format(http.TimeFormat), 10 * time.Second, true},
		{"过去的日期", now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
		{"远期日期", now.Add(time.Hour).Format(http.TimeFormat), capped, true},
		{"空", "", 0, false},
		{"负数", "-1", 0, false},
		{"无法解析", "soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.value, now, capped)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
