package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestIniDefaultsAndFlags(t *testing.T) {
	t.Setenv("CALDAV_PASSWORD", "from-env")
	t.Setenv("DATABASE_URL", "postgres://env")

	ini([]string{"--cmd", "once", "--sync.batch", "10", "--store.dsn", "postgres://flag"})

	assert.Equal(t, "once", Gist().String(CMD))
	assert.Equal(t, 10, Gist().Int(SYNC_BATCH))
	assert.Equal(t, 4, Gist().Int(SYNC_WORKERS))
	assert.Equal(t, "./wc_data", Gist().String(DATA_DIR))
	assert.Equal(t, 30*time.Second, Gist().Duration(SYNC_TIMEOUT))
	assert.Equal(t, "from-env", Gist().String(CALDAV_PASS))
	assert.Equal(t, "postgres://flag", Gist().String(STORE_DSN), "flags override the environment")
	assert.Equal(t, BackendFile, Gist().String(STORE_BACKEND))
	assert.Equal(t, "Europe/Ljubljana", Location().String())
}
