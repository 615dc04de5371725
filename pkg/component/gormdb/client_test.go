package gormdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	graphdbopts "github.com/kart-io/graphrag/pkg/options/graphdb"
)

func TestNewSQLiteInMemory(t *testing.T) {
	opts := graphdbopts.NewOptions()
	opts.Driver = graphdbopts.DriverSQLite
	opts.Database = ":memory:"

	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "sqlite", c.Name())
	assert.NoError(t, c.Ping(context.Background()))

	var n int
	require.NoError(t, c.DB().Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
}

func TestNewUnsupportedDriver(t *testing.T) {
	opts := graphdbopts.NewOptions()
	opts.Driver = "oracle"
	_, err := New(context.Background(), opts)
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, logLevel(1))
	assert.Equal(t, gormlogger.Error, logLevel(2))
	assert.Equal(t, gormlogger.Warn, logLevel(3))
	assert.Equal(t, gormlogger.Info, logLevel(4))
	assert.Equal(t, gormlogger.Silent, logLevel(0))
}
