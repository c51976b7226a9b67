package encoding

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/internal/core/alloc"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Load 测试模块装配出可用的解码服务
func TestModule_Load(t *testing.T) {
	var service *Service

	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		alloc.Module(),
		Module(),
		fx.Populate(&service),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, service, "Service 未注入")

	// gzip 聚合消息经服务解码还原
	plain := []byte("hello runnel module")
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	agg, err := types.NewResponseBuilder().
		Status(200).
		Header("content-encoding", "gzip").
		ContentBytes("text/plain", compressed.Bytes()).
		Build()
	require.NoError(t, err)
	defer agg.Release()

	decoded, err := service.DecodeAggregated(agg, 0)
	require.NoError(t, err, "解码失败")
	defer decoded.Release()

	assert.Equal(t, plain, decoded.ContentBytes())
	assert.False(t, decoded.Headers().Contains("content-encoding"))
}

// TestModule_ConfigDecodedLimit 测试配置的解码上限生效
func TestModule_ConfigDecodedLimit(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Encoding.MaxDecodedBytes = 8

	var service *Service

	app := fxtest.New(t,
		fx.Supply(cfg),
		alloc.Module(),
		Module(),
		fx.Populate(&service),
	)
	defer app.RequireStart().RequireStop()

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write(bytes.Repeat([]byte("x"), 64))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	agg, err := types.NewResponseBuilder().
		Status(200).
		Header("content-encoding", "gzip").
		ContentBytes("text/plain", compressed.Bytes()).
		Build()
	require.NoError(t, err)
	defer agg.Release()

	_, err = service.DecodeAggregated(agg, 0)
	require.ErrorIs(t, err, types.ErrContentTooLarge, "解码膨胀超限应拒绝")
}
