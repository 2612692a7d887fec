package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/metrics"
	"github.com/warpmc/go-warpcore/internal/core/resourcemgr"
)

func TestConfigFromUnified(t *testing.T) {
	assert.Nil(t, ConfigFromUnified(nil))
	assert.Nil(t, ConfigFromUnified(config.NewConfig()), "默认禁用")

	cfg := config.NewConfig()
	cfg.Diagnostics = cfg.Diagnostics.WithIntrospect("127.0.0.1:7070")
	cfg.Tasks.Workers = 6

	out := ConfigFromUnified(cfg)
	require.NotNil(t, out)
	assert.Equal(t, "127.0.0.1:7070", out.Addr)
	assert.Equal(t, 6, out.RequestedWorkers)
	assert.Equal(t, cfg.Tasks.EstimatedTaskMemoryMB, out.MinMemPerWorkerMB)
}

func TestModule_Disabled(t *testing.T) {
	var server *Server
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module,
		fx.Populate(&server),
	)
	defer app.RequireStart().RequireStop()

	assert.Nil(t, server)
}

func TestModule_Enabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Diagnostics = cfg.Diagnostics.WithIntrospect("127.0.0.1:0")

	var server *Server
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() resourcemgr.Sampler { return resourcemgr.NewStaticSampler(4096, 2048, 2) }),
		metrics.Module,
		resourcemgr.Module,
		Module,
		fx.Populate(&server),
	)
	app.RequireStart()
	require.NotNil(t, server)
	assert.NotEqual(t, "127.0.0.1:0", server.Addr())
	assert.NotNil(t, server.config.Resources)
	assert.NotNil(t, server.config.Gatherer)
	app.RequireStop()
}
