// Command tfemu emulates a WA8DED-style TNC for legacy packet-radio
// software, translating AX.25 connect/data/disconnect commands into TCP
// connections to known stations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"tfemu/internal/logger"
	"tfemu/pkg/station"
	"tfemu/pkg/tnc"
	"tfemu/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.StringP("config", "c", "", "YAML configuration file")
		transName  = flag.String("transport", "", "transport toward the client: tcp, serial, pty, file or quic")
		listen     = flag.String("listen", "", "listen address for tcp/quic transports")
		device     = flag.String("device", "", "device path for serial/file transports")
		baud       = flag.Int("baud", 0, "serial baud rate")
		stations   = flag.String("stations", "", "JSON file with known station addresses")
		channels   = flag.Int("channels", 0, "number of channels")
		hostMode   = flag.Bool("hostmode", false, "start in host mode instead of terminal mode")
		httpAddr   = flag.String("http", "", "serve a JSON status endpoint on this address")
		frameDebug = flag.Bool("framedebug", false, "hex-dump protocol frames at debug level")
		verbose    = flag.CountP("verbose", "v", "increase log verbosity")
	)
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return err
		}
	}
	if *transName != "" {
		cfg.Transport = *transName
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	if *stations != "" {
		cfg.Stations = *stations
	}
	if *channels != 0 {
		cfg.Channels = *channels
	}
	if *hostMode {
		cfg.HostMode = true
	}
	if *httpAddr != "" {
		cfg.HTTP = *httpAddr
	}

	level := logger.LevelInfo
	if *verbose > 0 {
		level = logger.LevelDebug
	}
	log := logger.NewDefaultLogger(level)
	logger.SetDefault(log)
	logger.SetFrameDebug(*frameDebug)

	dir, err := station.Load(cfg.Stations, log)
	if err != nil {
		return err
	}
	defer dir.Close()
	if err := dir.Watch(); err != nil {
		log.Warn("Stations: live reload unavailable: %v", err)
	}

	tr, err := newTransport(cfg, log)
	if err != nil {
		return err
	}
	defer tr.Close()

	controller := tnc.New(tnc.Config{
		Channels:  cfg.Channels,
		HostMode:  cfg.HostMode,
		Directory: dir,
		Logger:    log,
	})
	defer controller.Close()

	var stats transport.Stats
	if cfg.HTTP != "" {
		startStatusServer(cfg.HTTP, controller, &stats, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("TNC emulator ready: %s transport, %d channels, %s mode",
		tr.Kind(), controller.Channels(), startMode(cfg.HostMode))

	for {
		stream, err := tr.Open(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrTransportClosed) {
				break
			}
			return err
		}
		stats.Session()

		log.Info("Client session started")
		if err := controller.Run(ctx, transport.WithStats(stream, &stats)); err != nil && ctx.Err() == nil {
			log.Warn("Client session ended: %v", err)
		} else {
			log.Info("Client session ended")
		}
		stream.Close()

		if ctx.Err() != nil {
			break
		}
	}

	log.Info("Bye! 73")
	return nil
}

func newTransport(cfg Config, log logger.Logger) (transport.Transport, error) {
	switch cfg.Transport {
	case "tcp":
		tr, err := transport.NewTCP(cfg.Listen)
		if err != nil {
			return nil, err
		}
		log.Info("Listening on %s", tr.Addr())
		return tr, nil

	case "serial":
		if cfg.Device == "" {
			return nil, errors.New("serial transport requires --device")
		}
		return transport.NewSerial(cfg.Device, cfg.Baud), nil

	case "pty":
		tr, err := transport.NewPTY()
		if err != nil {
			return nil, err
		}
		log.Info("Client port: %s", tr.SlavePath())
		return tr, nil

	case "file":
		if cfg.Device == "" {
			return nil, errors.New("file transport requires --device")
		}
		return transport.NewFile(cfg.Device), nil

	case "quic":
		return transport.NewQUIC(cfg.Listen, nil)

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func startMode(host bool) string {
	if host {
		return "host"
	}
	return "terminal"
}
