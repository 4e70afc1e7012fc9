package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/asr"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/audio"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/bus"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/config"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/deps"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/metrics"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/mqtt"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/silence"
	"github.com/synesthesiam/rhasspy-asr-kaldi-hermes/internal/transcriber"
)

// Daemon owns the process lifecycle: configuration, the ASR service, the
// MQTT transport, the metrics endpoint, and the local control socket.
type Daemon struct {
	manager *config.Manager
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	svc       *asr.Service
	transport *mqtt.Transport
}

func New(manager *config.Manager) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		manager: manager,
		logger:  log.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// countingConverter wraps the external converter so reformatted frames show
// up in the metrics.
type countingConverter struct {
	inner     audio.Converter
	converted prometheus.Counter
}

func (c *countingConverter) Convert(ctx context.Context, wav []byte, target audio.Profile) ([]byte, error) {
	out, err := c.inner.Convert(ctx, wav, target)
	if err == nil {
		c.converted.Inc()
	}
	return out, err
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	cfg := d.manager.GetConfig()
	d.checkDeps(cfg)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	converter := &countingConverter{
		inner:     &audio.SoxConverter{Path: cfg.Audio.SoxPath},
		converted: m.FramesConverted,
	}
	normalizer := audio.NewNormalizer(cfg.ToAudioProfile(), converter)

	engineConfig := cfg.ToTranscriberConfig()
	engines := func() (transcriber.Transcriber, error) {
		return transcriber.New(engineConfig)
	}

	silenceEnabled := cfg.Silence.Enabled
	silenceConfig := cfg.ToSilenceConfig()
	detectors := func() silence.Detector {
		if !silenceEnabled {
			return silence.Disabled{}
		}
		return silence.NewEnergyDetector(silenceConfig)
	}

	d.transport = mqtt.New(cfg.ToTransportConfig(), d.logger)
	d.svc = asr.New(cfg.ToServiceConfig(), asr.Deps{
		Engines:    engines,
		Detectors:  detectors,
		Normalizer: normalizer,
		Publisher:  d.transport,
		Logger:     d.logger,
		Metrics:    m,
	})
	defer d.svc.Close()

	d.transport.Bind(d.svc)
	if err := d.transport.Connect(); err != nil {
		return err
	}
	defer d.transport.Close()

	// Config edits flip the enabled state live; everything else applies on
	// the next restart.
	d.manager.OnReload(func(c *config.Config) {
		d.svc.SetEnabled(c.ASR.Enabled)
	})
	if err := d.manager.StartWatching(d.ctx); err != nil {
		d.logger.Warn("config watching disabled", "err", err)
	}
	defer d.manager.Stop()

	if cfg.Metrics.Enabled {
		stop, err := d.serveMetrics(cfg.Metrics.Listen, registry)
		if err != nil {
			return err
		}
		defer stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		d.logger.Info("received signal, shutting down", "signal", sig)
		d.cancel()
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.logger.Info("daemon started", "broker", cfg.MQTT.Broker, "provider", cfg.ASR.Provider)

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.logger.Info("shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// checkDeps warns about missing external binaries up front. Missing tools
// surface later as per-frame or per-session errors, not a startup failure.
func (d *Daemon) checkDeps(cfg *config.Config) {
	if sox := deps.CheckSox(cfg.Audio.SoxPath); !sox.Installed {
		d.logger.Warn("sox not found, mismatched audio frames cannot be converted", "path", cfg.Audio.SoxPath)
	}
	if cfg.ASR.Provider == "exec" {
		if dec := deps.CheckDecoder(cfg.ASR.Command); !dec.Installed {
			d.logger.Warn("decoder command not found", "command", cfg.ASR.Command)
		} else {
			d.logger.Debug("decoder found", "path", dec.Path, "version", dec.Version)
		}
	}
}

func (d *Daemon) serveMetrics(listen string, registry *prometheus.Registry) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: listen, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	d.logger.Info("metrics server started", "listen", listen)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, nil
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.logger.Error("client read error", "err", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case 't':
		enabled := !d.svc.Enabled()
		d.svc.SetEnabled(enabled)
		fmt.Fprintf(c, "OK enabled=%t\n", enabled)
	case 's':
		fmt.Fprintf(c, "STATUS enabled=%t sessions=%d\n", d.svc.Enabled(), d.svc.ActiveSessions())
	case 'v':
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case 'q':
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		d.logger.Warn("unknown control command", "cmd", string(cmd))
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}
