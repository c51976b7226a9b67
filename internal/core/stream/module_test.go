package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/runnel/go-runnel/internal/core/metrics"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_ProvidesFactory 测试模块提供流工厂
func TestModule_ProvidesFactory(t *testing.T) {
	var factory *Factory

	app := fxtest.New(t,
		Module(),
		fx.Populate(&factory),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, factory, "Factory 未注入")

	// 工厂产出的流可完成一次最小往返
	msg, w := factory.NewStream()
	headers, err := httpheader.Of(":status", "200")
	require.NoError(t, err)

	go func() {
		_ = w.WriteHeaders(context.Background(), headers)
		_ = w.Close()
	}()

	sub, err := msg.Subscribe(interfaces.WithUnboundedDemand())
	require.NoError(t, err)

	var kinds []types.EventKind
	for ev := range sub.Events() {
		kinds = append(kinds, ev.Kind())
	}
	assert.Equal(t, []types.EventKind{types.KindHeaders, types.KindEnd}, kinds)
	assert.Equal(t, types.StreamCompleted, msg.State())
}

// TestModule_FactoryBindsRecorder 测试工厂把指标记录器绑定到新建流
func TestModule_FactoryBindsRecorder(t *testing.T) {
	collector := metrics.NewCollector()

	var factory *Factory

	app := fxtest.New(t,
		fx.Provide(func() interfaces.Metrics { return collector }),
		Module(),
		fx.Populate(&factory),
	)
	defer app.RequireStart().RequireStop()

	msg, w := factory.NewStream()
	require.NoError(t, w.Close())

	sub, err := msg.Subscribe(interfaces.WithUnboundedDemand())
	require.NoError(t, err)
	for range sub.Events() {
	}

	snap := collector.Snapshot()
	assert.Equal(t, int64(1), snap.Streams.Opened, "建流应计数")
	assert.Equal(t, int64(1), snap.Streams.Completed, "终止应计数")
}

// TestModule_NoRecorderIsOptional 测试缺省记录器时模块仍可装配
func TestModule_NoRecorderIsOptional(t *testing.T) {
	var factory *Factory

	app := fxtest.New(t,
		Module(),
		fx.Populate(&factory),
	)
	defer app.RequireStart().RequireStop()

	msg, w := factory.NewStream()
	require.NoError(t, w.Close())
	assert.Equal(t, types.StreamCompleted, msg.State())
}
