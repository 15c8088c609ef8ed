// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/heartbeat/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(os.Getenv("HEARTBEAT_CONFIG"))
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		fail("configuration is invalid")
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty (management routes are open).")
	}
	if len(cfg.IngestAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no API keys at all (anyone can send heartbeats).")
	}
	for name, v := range map[string]string{"ADMIN_API_KEYS": os.Getenv("ADMIN_API_KEYS"), "INGEST_API_KEYS": os.Getenv("INGEST_API_KEYS")} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("API_ADDR=" + cfg.Addr)

	backend, _, _ := config.SplitDatabaseURL(cfg.DatabaseURL)
	if backend == config.BackendMemory {
		warn("DATABASE_URL empty; monitors live in memory and are lost on restart.")
	} else {
		ok("DATABASE_URL present (" + backend + ")")
	}

	if cfg.Telegram.BotToken == "" {
		warn("TELEGRAM_BOT_TOKEN empty; alerts will only be logged.")
	} else {
		ok("Telegram chat " + cfg.Telegram.ChatID)
	}

	if cfg.TriggerEnabled() {
		ok(fmt.Sprintf("check schedule %q, cycle budget %s", cfg.CheckSchedule, cfg.CycleTimeout()))
	} else {
		warn("CHECK_SCHEDULE=off; run heartbeat-checker from an external scheduler.")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; browsers will be blocked by CORS for cross-origin requests.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	ok("preflight passed")
}
