// cmd/linkd/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/linkd/internal/bridge"
	"github.com/tamzrod/linkd/internal/config"
	"github.com/tamzrod/linkd/internal/logging"
	"github.com/tamzrod/linkd/internal/metrics"
	"github.com/tamzrod/linkd/internal/orchestrator"
	"github.com/tamzrod/linkd/internal/provision"
	"github.com/tamzrod/linkd/internal/provision/bluez"
	"github.com/tamzrod/linkd/internal/state"
	"github.com/tamzrod/linkd/internal/store"
	"github.com/tamzrod/linkd/internal/transport"
	"github.com/tamzrod/linkd/internal/transport/broker"
	"github.com/tamzrod/linkd/internal/transport/wsclient"
	"github.com/tamzrod/linkd/internal/wifi"
	"github.com/tamzrod/linkd/internal/wifi/networkmanager"
)

func main() {
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer closeLog()

	hub := state.NewHub(logger)

	if err := run(cfg, hub, logger); err != nil {
		hub.SetSystem(state.SystemError)
		logger.Error("linkd exited", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, hub *state.Hub, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Storage + board link
	// --------------------

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	board, err := bridge.Open(bridge.Config{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: ms(cfg.Serial.ReadTimeoutMs),
		BufferSize:  cfg.Serial.BufferSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	defer board.Close()

	// --------------------
	// WiFi
	// --------------------

	driver, err := networkmanager.Open(cfg.WiFi.Interface, logger)
	if err != nil {
		return fmt.Errorf("wifi driver: %w", err)
	}
	defer driver.Close()

	link := wifi.NewLink(wifi.Config{
		MaxRetry:       cfg.WiFi.MaxRetry,
		RetryInterval:  ms(cfg.WiFi.RetryIntervalMs),
		ConnectTimeout: ms(cfg.WiFi.ConnectTimeoutMs),
		Defaults: wifi.Credentials{
			SSID:     cfg.WiFi.DefaultSSID,
			Password: cfg.WiFi.DefaultPassword,
		},
	}, driver, st, logger)

	// --------------------
	// Provisioning
	// --------------------

	periph, err := bluez.Open(cfg.Provisioning.Adapter, logger)
	if err != nil {
		return fmt.Errorf("bluetooth: %w", err)
	}
	defer periph.Close()

	prov := provision.New(periph, provision.Options{
		DeviceName:  cfg.Provisioning.DeviceName,
		MaxWriteLen: cfg.Provisioning.MaxWriteLen,
	}, logger)
	if err := periph.Bind(prov); err != nil {
		return fmt.Errorf("bluetooth: %w", err)
	}

	// --------------------
	// Transports
	// --------------------

	endpoints := orchestrator.LoadEndpoints(st, orchestrator.Endpoints{
		WebSocketURL: cfg.WebSocket.URL,
		BrokerURL:    cfg.Broker.URL,
	})

	ws := wsclient.New(wsclient.Options{
		URL:               endpoints.WebSocketURL,
		ReconnectInterval: ms(cfg.WebSocket.ReconnectIntervalMs),
		SendTimeout:       ms(cfg.WebSocket.SendTimeoutMs),
	}, logger)

	mq := broker.New(broker.Options{
		URL:       endpoints.BrokerURL,
		ClientID:  cfg.Broker.ClientID,
		KeepAlive: time.Duration(cfg.Broker.KeepAliveS) * time.Second,
	}, logger)

	policy, err := transport.ParseOnlinePolicy(cfg.Transport.OnlinePolicy)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.WatchWifiFailures(link.Failures)

	topics := transport.Topics{Prefix: cfg.Broker.TopicPrefix}
	seq := transport.NewSequencer(hub, ws, mq, transport.Options{
		Topics:   topics,
		Policy:   policy,
		OnStatus: m.SetTransport,
	}, logger)

	// --------------------
	// Orchestrator
	// --------------------

	orch, err := orchestrator.New(orchestrator.Deps{
		Hub:       hub,
		Link:      link,
		Provision: prov,
		Sequencer: seq,
		WebSocket: ws,
		Broker:    mq,
		Board:     board,
		Store:     st,
		Metrics:   m,
		Logger:    logger,
	}, topics)
	if err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, m, logger); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	// the signal context only triggers shutdown; Stop does the teardown
	if err := orch.Start(context.Background()); err != nil {
		return err
	}
	logger.Info("linkd running",
		"interface", cfg.WiFi.Interface,
		"serial", cfg.Serial.Port,
		"websocket", endpoints.WebSocketURL,
		"broker", endpoints.BrokerURL,
		"client_id", mq.ClientID(),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	orch.Stop()
	return nil
}

func openStore(path string) (store.Store, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(path)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
