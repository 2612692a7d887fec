package taskrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/resourcemgr"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/types"
)

func TestModule_Provides(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Tasks = cfg.Tasks.WithWorkers(3).WithEstimatedTaskMemoryMB(0)

	var (
		tr pkgif.TaskRunner
		r  *Runner
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() resourcemgr.Sampler { return resourcemgr.NewStaticSampler(16000, 12000, 8) }),
		resourcemgr.Module,
		Module,
		fx.Populate(&tr, &r),
	)
	app.RequireStart()

	h, err := tr.Go(context.Background(), "fx", 0, 0, func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	res, err := h.Result(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, tr.Stats().Workers)

	app.RequireStop()
	assert.True(t, r.Stats().Closed, "停止时关闭执行器")
}

// TestModule_StopTimeoutCancelsQueued 停止超时后排队任务被取消
func TestModule_StopTimeoutCancelsQueued(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Tasks = cfg.Tasks.WithWorkers(1).WithEstimatedTaskMemoryMB(0)

	var r *Runner
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() resourcemgr.Sampler { return resourcemgr.NewStaticSampler(16000, 12000, 8) }),
		resourcemgr.Module,
		Module,
		fx.Populate(&r),
	)
	app.RequireStart()

	release := make(chan struct{})
	defer close(release)
	blocker, err := r.Submit(context.Background(), Spec{Fn: func(context.Context) (any, error) {
		<-release
		return nil, nil
	}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return blocker.State() == types.TaskRunning },
		5*time.Second, time.Millisecond)

	queued, err := r.Submit(context.Background(), Spec{Fn: func(context.Context) (any, error) { return 1, nil }})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, app.Stop(ctx), context.DeadlineExceeded)

	_, err = queued.Result(time.Second)
	assert.ErrorIs(t, err, ErrTaskCancelled)
	assert.Equal(t, types.TaskCancelled, queued.State())
}
