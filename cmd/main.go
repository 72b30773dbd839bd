package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"artnetd/internal/artnet"
	"artnetd/internal/artnet/packet"
	"artnetd/internal/capture"
	"artnetd/internal/clientmqtt"
	"artnetd/internal/config"
	"artnetd/internal/logger"
)

var (
	configFile string
	replayFile string
)

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
	flag.StringVar(&replayFile, "replay", "", "Decode a pcap file instead of binding (overrides capture.replay)")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run returns once the service has shut down, so deferred cleanup always
// happens before main exits.
func run() error {
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration file read error: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create a logger: %w", err)
	}
	log.Module("logger").Debug("newLogger created ok")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if replayFile == "" {
		replayFile = cfg.Capture.Replay
	}
	if replayFile != "" {
		if err := replay(ctx, log, replayFile, cfg.ArtNet.Port); err != nil {
			return fmt.Errorf("replay %s: %w", replayFile, err)
		}
		return nil
	}

	opts, err := ConvertConfigSession(cfg.ArtNet)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Capture.Record != "" {
		recordFile, err := os.Create(cfg.Capture.Record)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cfg.Capture.Record, err)
		}
		defer recordFile.Close()
		rec, err := capture.NewRecorder(recordFile)
		if err != nil {
			return err
		}
		opts.Tap = rec
		log.Module("capture").Infof("recording traffic to %s", cfg.Capture.Record)
	}

	session := artnet.NewSession(log, opts)
	defer session.Close()
	for _, u := range cfg.ArtNet.Universes {
		if _, err := session.CreateUniverse(u.Number, u.Size); err != nil {
			return fmt.Errorf("failed to create universe: %w", err)
		}
	}
	log.Module("art-net").Debug("NewSession created ok")

	if err := session.Bind(ctx, cfg.ArtNet.Bind); err != nil {
		return fmt.Errorf("failed to start art-net service: %w", err)
	}

	dmxDataCh := make(chan clientmqtt.DataCh, 10)

	var client *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		client = clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT))
		log.Module("mqtt").Debug("NewClient created ok")
		if err = client.Start(ctx, dmxDataCh); err != nil {
			log.Error("failed to start MQTT service:", err.Error())
			cancel()
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatch(ctx, log, session, client, dmxDataCh)
	}()

	<-ctx.Done()

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Error("failed to stop MQTT service:", err.Error())
		}
	}
	if err := session.Close(); err != nil {
		log.Error("failed to stop art-net service:", err.Error())
	}
	wg.Wait()

	log.Info("shutdown complete")
	return nil
}

// dispatch forwards received frames to MQTT and applies channel writes from
// MQTT to the session universes.
func dispatch(ctx context.Context, log *logger.Log, s *artnet.Session, client *clientmqtt.ClientMQTT, dmxDataCh <-chan clientmqtt.DataCh) {
	l := log.Module("art-net")
	frames := s.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if client == nil {
				l.Debugf("DMX %s from %s", f.Packet, f.Source)
				continue
			}
			if err := client.PublishFrame(f); err != nil {
				l.Warnf("failed to publish frame: %v", err)
			}
		case data := <-dmxDataCh:
			l.Debug("DMX. data received from MQTT")
			if err := s.SetChannelValues(data.Values()); err != nil {
				l.Warnf("channel write from MQTT: %v", err)
			}
		}
	}
}

func replay(ctx context.Context, log *logger.Log, path string, port uint16) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	l := log.Module("capture")
	stats, err := capture.Replay(ctx, f, port, func(r capture.Record) error {
		l.Infof("%s %s -> %s %s", r.Timestamp.Format("15:04:05.000000"), r.Source, r.Destination, r.Packet)
		return nil
	})
	l.Infof("packets=%d art-net=%d invalid=%d", stats.Packets, stats.Datagrams, stats.Invalid)
	return err
}

// ConvertConfigSession converts the [artnet] section into session options.
func ConvertConfigSession(cfg config.ArtNetConf) (artnet.Options, error) {
	role, err := artnet.ParseRole(cfg.Role)
	if err != nil {
		return artnet.Options{}, err
	}
	port := cfg.Port
	if port == 0 {
		port = packet.Port
	}
	return artnet.Options{
		Role:         role,
		ShortName:    cfg.ShortName,
		LongName:     cfg.LongName,
		Port:         port,
		PollInterval: cfg.PollEvery(),
		FrameRate:    cfg.FrameRate,
		EventBuffer:  cfg.EventBuffer,
	}, nil
}

// ConvertConfigClientMQTT converts the [mqtt] section into client settings.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID:    cfg.ClientID,
		Schema:      "tcp",
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.User,
		Password:    cfg.Password,
		Qos:         cfg.Qos,
		TopicPrefix: cfg.TopicPrefix,

		RetryInterval: cfg.RetryInterval.Duration,
		KeepAlive:     cfg.KeepAlive.Duration,
	}
}
