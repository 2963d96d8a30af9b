package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/internal/config"
	"github.com/MrEthical07/gatekeeper/store/memstore"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GATEKEEPER_AUTH_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuildHTTPServerServesMetricsAndHealth(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Observability.Metrics = true

	engineCfg, err := cfg.ToEngineConfig()
	require.NoError(t, err)
	engine, err := gatekeeper.New().WithConfig(engineCfg).WithStore(memstore.New()).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv, err := buildHTTPServer(cfg, engine, &deps{}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, cfg.Server.HTTPAddr, srv.Addr)
	require.Equal(t, cfg.Server.ReadTimeout, srv.ReadTimeout)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "gatekeeper_login_success_total")
}

func TestDepsHealthChecksRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := &deps{redis: client}
	require.NoError(t, d.health(context.Background()))

	mr.Close()
	require.Error(t, d.health(context.Background()))
}

func TestDepsCloseRunsInReverse(t *testing.T) {
	var order []int
	d := &deps{}
	for i := range 3 {
		d.closers = append(d.closers, func() error {
			order = append(order, i)
			return nil
		})
	}
	d.Close()
	require.Equal(t, []int{2, 1, 0}, order)
}
