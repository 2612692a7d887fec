package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"sigs.k8s.io/yaml"
)

// ErrUnsupportedFormat 不支持的配置文件格式
var ErrUnsupportedFormat = errors.New("unsupported config file format")

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load 从文件加载配置
//
// 根据扩展名选择解析方式：.json 使用 JSON，.yaml/.yml 使用 YAML（字段名与 JSON 标签一致）。
// 文件中未出现的字段保留默认值。加载后展开 ${VAR} 环境变量并验证。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cfg, err = FromJSON(data)
	case ".yaml", ".yml":
		cfg, err = FromYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// FromJSON 从 JSON 数据解析配置（以默认配置为基础）
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.ExpandEnv()
	return cfg, nil
}

// FromYAML 从 YAML 数据解析配置（以默认配置为基础）
func FromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.ExpandEnv()
	return cfg, nil
}

// ExpandEnv 展开配置中的 ${VAR} 引用
//
// 作用于服务的 base_url、api_key、默认头部、查询参数以及代理池文件路径。
// 未定义的变量替换为空字符串。
func (c *Config) ExpandEnv() {
	c.Proxy.Pool.File = ExpandEnvString(c.Proxy.Pool.File)
	for name, svc := range c.Services {
		svc.BaseURL = ExpandEnvString(svc.BaseURL)
		svc.APIKey = ExpandEnvString(svc.APIKey)
		svc.DefaultHeaders = expandMap(svc.DefaultHeaders)
		svc.QueryParams = expandMap(svc.QueryParams)
		c.Services[name] = svc
	}
}

// ExpandEnvString 展开字符串中的 ${VAR}
func ExpandEnvString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

func expandMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = ExpandEnvString(v)
	}
	return out
}
