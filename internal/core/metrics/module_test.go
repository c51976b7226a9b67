package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Load 测试模块加载
func TestModule_Load(t *testing.T) {
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Invoke(func(m interfaces.Metrics) {
			if m == nil {
				t.Error("Metrics is nil")
			}
		}),
	)
	defer app.RequireStart().RequireStop()
}

// TestModule_Provides 测试模块提供的类型
func TestModule_Provides(t *testing.T) {
	var collector *Collector
	var m interfaces.Metrics
	var registry *prometheus.Registry

	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&collector, &m, &registry),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, collector)
	require.NotNil(t, m)
	require.NotNil(t, registry)

	// Recorder 钩子累计到快照
	m.StreamOpened()
	m.EventDelivered(types.KindData, 2048)
	m.StreamTerminated(types.StreamCompleted)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Streams.Opened)
	assert.Equal(t, int64(1), snap.Streams.EventsDelivered)
	assert.Equal(t, int64(2048), snap.Streams.BytesDelivered)
	assert.Equal(t, int64(1), snap.Streams.Completed)
}

// TestModule_RegistryExports 测试注册表导出命名空间前缀的指标
func TestModule_RegistryExports(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Namespace = "pipeline"

	var m interfaces.Metrics
	var registry *prometheus.Registry

	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&m, &registry),
	)
	defer app.RequireStart().RequireStop()

	m.StreamOpened()
	m.AggregationStarted()
	m.AggregationCompleted(64)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["pipeline_streams_opened_total"], "缺少流计数指标")
	assert.True(t, names["pipeline_aggregations_completed_total"], "缺少聚合计数指标")
	assert.True(t, names["go_goroutines"], "缺少 Go 运行时指标")
}
