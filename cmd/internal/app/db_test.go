package app

import (
	"testing"
)

func TestNewPoolConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		maxConn int32
		minConn int32
		appName string
	}{
		{
			name:    "limits and default application name",
			cfg:     Config{DatabaseURL: "postgres://wise:pw@localhost:5432/wise", DBMaxConns: 12, DBMinConns: 2},
			maxConn: 12,
			minConn: 2,
			appName: dbApplicationName,
		},
		{
			name:    "dsn application name wins",
			cfg:     Config{DatabaseURL: "postgres://wise:pw@localhost:5432/wise?application_name=ops&pool_max_conns=7", DBMinConns: 1},
			maxConn: 7,
			minConn: 1,
			appName: "ops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcfg, err := newPoolConfig(tt.cfg)
			if err != nil {
				t.Fatalf("newPoolConfig: %v", err)
			}
			if pcfg.MaxConns != tt.maxConn || pcfg.MinConns != tt.minConn {
				t.Fatalf("conns max=%d min=%d, want %d/%d", pcfg.MaxConns, pcfg.MinConns, tt.maxConn, tt.minConn)
			}
			if got := pcfg.ConnConfig.RuntimeParams["application_name"]; got != tt.appName {
				t.Fatalf("application_name=%q want %q", got, tt.appName)
			}
			if pcfg.MaxConnIdleTime != dbMaxConnIdleTime || pcfg.HealthCheckPeriod != dbHealthCheckPeriod {
				t.Fatalf("idle=%s health=%s", pcfg.MaxConnIdleTime, pcfg.HealthCheckPeriod)
			}
		})
	}
}

func TestNewPoolConfig_BadURL(t *testing.T) {
	if _, err := newPoolConfig(Config{DatabaseURL: "postgres://%zz"}); err == nil {
		t.Fatal("expected parse error")
	}
}
