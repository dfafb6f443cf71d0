package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "trims and skips blanks", in: " a:1 , ,b:2,", want: []string{"a:1", "b:2"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CSV(tt.in))
		})
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")
	t.Setenv("DASHBOARD_CACHE_TTL", "2m")
	t.Setenv("SALE_ACTIVATOR_INTERVAL", "-1s")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	require.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, 2*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, time.Minute, cfg.SaleActivatorInterval)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "products", cfg.ESIndex)
}

func TestValidate_ReportsMissing(t *testing.T) {
	t.Parallel()

	missing := Config{JWTAccessSecret: []byte("x")}.Validate()
	assert.Equal(t, []string{"DATABASE_URL", "JWT_REFRESH_SECRET"}, missing)

	full := Config{DatabaseURL: "postgres://", JWTAccessSecret: []byte("a"), JWTRefreshSecret: []byte("b")}
	assert.Empty(t, full.Validate())
}
