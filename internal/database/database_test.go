package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTunePool(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantMin int32
		wantMax int32
		wantApp string
	}{
		{"defaults", "postgres://u:p@localhost:5432/palace", minConns, maxConns, "palace"},
		{"larger pool kept", "postgres://u:p@localhost:5432/palace?pool_max_conns=20&pool_min_conns=3", 3, 20, "palace"},
		{"small pool raised", "postgres://u:p@localhost:5432/palace?pool_max_conns=2", minConns, maxConns, "palace"},
		{"application name kept", "postgres://u:p@localhost:5432/palace?application_name=palace-worker", minConns, maxConns, "palace-worker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := pgxpool.ParseConfig(tt.url)
			require.NoError(t, err)

			tunePool(cfg)

			assert.Equal(t, tt.wantMin, cfg.MinConns)
			assert.GreaterOrEqual(t, cfg.MaxConns, tt.wantMax)
			assert.Equal(t, tt.wantApp, cfg.ConnConfig.RuntimeParams["application_name"])
		})
	}
}
