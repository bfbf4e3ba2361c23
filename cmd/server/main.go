package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nextwavehq/gatekit/pkg/config"
	"github.com/nextwavehq/gatekit/pkg/httpserver"
	"github.com/nextwavehq/gatekit/pkg/logger"
	"github.com/nextwavehq/gatekit/pkg/redis"
	"github.com/nextwavehq/gatekit/svc/admission"
)

func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var logCfg logger.Config
	config.MustLoad(&logCfg)

	log := logger.NewFromConfig(logCfg, logger.WithAttr(slog.String("service", "gatekit")))
	logger.SetAsDefault(log)

	var (
		redisCfg redis.Config
		admCfg   admission.Config
		srvCfg   httpserver.Config
	)
	config.MustLoad(&redisCfg)
	config.MustLoad(&admCfg)
	config.MustLoad(&srvCfg)

	// The client is built without waiting for the server: the admission
	// monitor owns availability and degrades to per-process limits when the
	// store is unreachable.
	var client goredis.UniversalClient
	if c, err := redis.NewClient(redisCfg); err != nil {
		log.Warn("invalid redis configuration, running on per-process limits", logger.Error(err))
	} else {
		client = c
		defer c.Close()
	}

	svc, err := admission.New(ctx, admCfg, client, log)
	if err != nil {
		log.Error("failed to build admission layer", logger.Error(err))
		return err
	}
	defer svc.Close()

	router := admission.Router(svc, admission.RouterOptions{
		General: placeholder("general"),
		Upload:  placeholder("upload"),
		AIChat:  placeholder("ai_chat"),
		Health:  httpserver.HealthHandler(log, svc.HealthComponent()),
	})

	srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, router); err != nil {
		log.Error("server exited", logger.Error(err))
		return err
	}
	return nil
}

// placeholder stands in for the real route families (auth, profile,
// documents, AI chat), which are wired in by the application and are not
// part of the admission layer.
type placeholder string

func (p placeholder) Handle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"family": string(p)},
			"error":   nil,
		})
	})
}
