package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var cfg *koanf.Koanf

const (
	CMD            = "cmd"
	LOG_LEVEL      = "log.level"
	DATA_DIR       = "data.dir"
	TIMEZONE       = "timezone"
	SYNC_CRON      = "sync.cron"
	SYNC_BATCH     = "sync.batch"
	SYNC_WORKERS   = "sync.workers"
	SYNC_TIMEOUT   = "sync.timeout"
	STORE_BACKEND  = "store.backend"
	STORE_DSN      = "store.dsn"
	CALDAV_URL     = "caldav.url"
	CALDAV_USER    = "caldav.user"
	CALDAV_PASS    = "caldav.pass"
	WISETT_URL     = "wisett.url"
	WISETT_TIMEOUT = "wisett.timeout"
	SOURCE_DIR     = "source.dir"
	HTTP_LISTEN    = "http.listen"
	NOTIFY_WEBHOOK = "notify.webhook"
	NOTIFY_MODEL   = "notify.model"
	GROUPS_FILE    = "groups.file"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

func Gist() *koanf.Koanf {
	if cfg == nil {
		ini(os.Args[1:])
	}
	return cfg
}

func Sprint() string {
	sb := strings.Builder{}
	sb.WriteString("cmd|required|-\n")
	sb.WriteString("log_level|optional|info\n")
	sb.WriteString("data_dir|optional|./wc_data\n")
	sb.WriteString("timezone|optional|Europe/Ljubljana\n")
	sb.WriteString("sync_cron|optional|*/15 * * * *\n")
	sb.WriteString("sync_batch|optional|50\n")
	sb.WriteString("sync_workers|optional|4\n")
	sb.WriteString("sync_timeout|optional|30s\n")
	sb.WriteString("store_backend|optional|file\n")
	sb.WriteString("store_dsn|required for postgres|$DATABASE_URL\n")
	sb.WriteString("caldav_url|required for sync|-\n")
	sb.WriteString("caldav_user|optional|-\n")
	sb.WriteString("caldav_pass|optional|$CALDAV_PASSWORD\n")
	sb.WriteString("wisett_url|optional|https://www.wise-tt.com\n")
	sb.WriteString("wisett_timeout|optional|30s\n")
	sb.WriteString("source_dir|optional|-\n")
	sb.WriteString("http_listen|optional|:8080\n")
	sb.WriteString("notify_webhook|optional|$DISCORD_WEBHOOK_URL\n")
	sb.WriteString("notify_model|optional|gpt-5-mini\n")
	sb.WriteString("groups_file|required for groups|-\n")
	return sb.String()
}

// Location returns the zone all timetable timestamps are normalized to.
func Location() *time.Location {
	loc, err := time.LoadLocation(Gist().String(TIMEZONE))
	if err != nil {
		log.Error().Err(err).Str("timezone", Gist().String(TIMEZONE)).Msg("error getting location by timezone id")
		return time.Local
	}
	return loc
}

func ini(args []string) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg = koanf.New(".")
	cfg.Set(LOG_LEVEL, "info")
	cfg.Set(DATA_DIR, "./wc_data")
	cfg.Set(TIMEZONE, "Europe/Ljubljana")
	cfg.Set(SYNC_CRON, "*/15 * * * *")
	cfg.Set(SYNC_BATCH, 50)
	cfg.Set(SYNC_WORKERS, 4)
	cfg.Set(SYNC_TIMEOUT, 30*time.Second)
	cfg.Set(STORE_BACKEND, BackendFile)
	cfg.Set(WISETT_URL, "https://www.wise-tt.com")
	cfg.Set(WISETT_TIMEOUT, 30*time.Second)
	cfg.Set(HTTP_LISTEN, ":8080")
	cfg.Set(NOTIFY_MODEL, "gpt-5-mini")
	setFromEnv(STORE_DSN, "DATABASE_URL")
	setFromEnv(CALDAV_PASS, "CALDAV_PASSWORD")
	setFromEnv(NOTIFY_WEBHOOK, "DISCORD_WEBHOOK_URL")

	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}

	f.String(CMD, "", "application run mode")
	f.String(LOG_LEVEL, "info", "log level")
	f.String(DATA_DIR, "./wc_data", "directory for settings, snapshots and sync state")
	f.String(TIMEZONE, "Europe/Ljubljana", "timezone of the timetable")
	f.String(SYNC_CRON, "*/15 * * * *", "sync schedule")
	f.Int(SYNC_BATCH, 50, "remote batch size")
	f.Int(SYNC_WORKERS, 4, "concurrent remote calls per batch")
	f.Duration(SYNC_TIMEOUT, 30*time.Second, "timeout of a single remote call")
	f.String(STORE_BACKEND, BackendFile, "sync state backend: file or postgres")
	f.String(STORE_DSN, "", "postgres dsn")
	f.String(CALDAV_URL, "", "caldav calendar home url")
	f.String(CALDAV_USER, "", "caldav user")
	f.String(CALDAV_PASS, "", "caldav password")
	f.String(WISETT_URL, "https://www.wise-tt.com", "timetable site url")
	f.Duration(WISETT_TIMEOUT, 30*time.Second, "timetable export download timeout")
	f.String(SOURCE_DIR, "", "read exports from <dir>/<schoolcode>_<filterId>.ics instead of the timetable site")
	f.String(HTTP_LISTEN, ":8080", "status server listen address")
	f.String(NOTIFY_WEBHOOK, "", "discord webhook for timetable change notifications")
	f.String(NOTIFY_MODEL, "gpt-5-mini", "model used to summarize timetable changes")
	f.String(GROUPS_FILE, "", "export file listed by the groups command")
	f.Parse(args)
	if err := cfg.Load(posflag.Provider(f, ".", cfg), nil); err != nil {
		log.Panic().Err(err).Msg("error loading config")
	}
	lvl, err := zerolog.ParseLevel(cfg.String(LOG_LEVEL))
	if err != nil {
		log.Panic().Err(err).Msg("error parsing log level")
	}
	zerolog.SetGlobalLevel(lvl)

	printCfg()
}

func setFromEnv(key, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		cfg.Set(key, v)
	}
}

func printCfg() {
	log.Debug().Msgf("cmd: %s", cfg.String(CMD))
	log.Debug().Msgf("log_level: %s", cfg.String(LOG_LEVEL))
	log.Debug().Msgf("data_dir: %s", cfg.String(DATA_DIR))
	log.Debug().Msgf("timezone: %s", cfg.String(TIMEZONE))
	log.Debug().Msgf("sync_cron: %s", cfg.String(SYNC_CRON))
	log.Debug().Msgf("sync_batch: %d", cfg.Int(SYNC_BATCH))
	log.Debug().Msgf("sync_workers: %d", cfg.Int(SYNC_WORKERS))
	log.Debug().Msgf("sync_timeout: %s", cfg.Duration(SYNC_TIMEOUT))
	log.Debug().Msgf("store_backend: %s", cfg.String(STORE_BACKEND))
	log.Debug().Msgf("caldav_url: %s", cfg.String(CALDAV_URL))
	log.Debug().Msgf("caldav_user: %s", cfg.String(CALDAV_USER))
	log.Debug().Msgf("wisett_url: %s", cfg.String(WISETT_URL))
	log.Debug().Msgf("source_dir: %s", cfg.String(SOURCE_DIR))
	log.Debug().Msgf("http_listen: %s", cfg.String(HTTP_LISTEN))
	log.Debug().Msgf("notify_webhook set: %t", cfg.String(NOTIFY_WEBHOOK) != "")
}
