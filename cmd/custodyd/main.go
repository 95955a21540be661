package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"

	"wagmicharge/config"
	"wagmicharge/core/events"
	"wagmicharge/native/custody"
	"wagmicharge/observability/logging"
	"wagmicharge/observability/metrics"
	"wagmicharge/rpc"
	"wagmicharge/state"
	"wagmicharge/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CUSTODY_ENV"))
	logger := logging.Setup("custodyd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := bootstrap(manager, cfg); err != nil {
		logger.Error("Failed to bootstrap state", slog.Any("error", err))
		os.Exit(1)
	}

	engine := custody.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(metrics.Emitter{Next: logEmitter{logger: logger}})
	if strings.TrimSpace(cfg.Operator) != "" {
		operator, err := cfg.OperatorAddress()
		if err != nil {
			logger.Error("Invalid operator address", slog.Any("error", err))
			os.Exit(1)
		}
		engine.SetOperator(operator)
	}

	server := rpc.NewServer(engine)
	logger.Info("custodyd listening",
		slog.String("addr", cfg.ListenAddress),
		slog.String("vault", fmt.Sprintf("%x", engine.VaultAddress())),
	)
	if err := http.ListenAndServe(cfg.ListenAddress, server.Handler()); err != nil {
		logger.Error("HTTP server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// bootstrap seeds a fresh state with the configured governance parameters,
// admin set, and the native asset registry entry. Existing state wins:
// persisted values are governed through the engine, not the config file.
func bootstrap(manager *state.Manager, cfg *config.Config) error {
	if _, ok, err := manager.ParamsGet(); err != nil {
		return err
	} else if !ok {
		params, err := cfg.EngineParams()
		if err != nil {
			return err
		}
		if err := manager.ParamsPut(params); err != nil {
			return err
		}
	}

	admins, _, err := manager.AdminsGet()
	if err != nil {
		return err
	}
	if len(admins) == 0 && len(cfg.Admins) > 0 {
		configured, err := cfg.AdminAddresses()
		if err != nil {
			return err
		}
		if err := manager.AdminsPut(configured, cfg.AdminThreshold); err != nil {
			return err
		}
	}

	if _, ok, err := manager.AssetGet(custody.NativeAsset()); err != nil {
		return err
	} else if !ok {
		params, err := cfg.EngineParams()
		if err != nil {
			return err
		}
		if err := manager.AssetPut(&custody.AssetInfo{
			Asset:          custody.NativeAsset(),
			Name:           "Native Coin",
			Decimals:       18,
			MaxOrderAmount: new(big.Int).Set(params.DailyLimit),
			Volume:         big.NewInt(0),
			Supported:      true,
			Active:         true,
		}); err != nil {
			return err
		}
	}
	return nil
}

// logEmitter forwards engine events to the structured logger.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt *events.Event) {
	if evt == nil || l.logger == nil {
		return
	}
	attrs := make([]any, 0, len(evt.Attributes))
	for k, v := range evt.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	l.logger.Info(evt.Type, attrs...)
}
