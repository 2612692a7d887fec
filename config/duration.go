// Package config 提供统一的配置管理
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Duration 是支持 JSON 字符串解析的 time.Duration 包装类型
//
// 支持的格式:
//   - 字符串: "30s", "5m", "1h30m", "100ms" 等
//   - 数字: 秒数，允许小数（与服务配置文件中的 timeout_sec 等字段保持一致）
//
// 使用示例:
//
//	type Config struct {
//	    Timeout Duration `json:"timeout"`
//	}
//
//	// JSON: {"timeout": "30s"} 或 {"timeout": 30} 或 {"timeout": 0.5}
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		duration, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration string %q: %w", s, err)
		}
		*d = Duration(duration)
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return fmt.Errorf("invalid duration seconds %v", secs)
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"30s\") or number (seconds)")
}

// MarshalJSON 实现 json.Marshaler 接口
//
// 输出为人类可读的字符串格式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回底层的 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Seconds 返回秒数
func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
