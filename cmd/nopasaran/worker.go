package main

import (
	"context"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/config"
	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/interpreters/goja"
	"github.com/BenIlies/NoPASARAN-sub000/primitives"
	"github.com/BenIlies/NoPASARAN-sub000/sio"
	"github.com/BenIlies/NoPASARAN-sub000/sniff"
	"github.com/BenIlies/NoPASARAN-sub000/storage"
	"github.com/BenIlies/NoPASARAN-sub000/storage/bolt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Worker is one configured run of a top-level chart.
type Worker struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Machine *core.Machine

	recorder  *sio.Recorder
	storage   storage.Storage
	sniffer   sniff.Sniffer
	mqtt      mqtt.Client
	publisher *sio.MQTTPublisher
	cancel    context.CancelFunc
}

// NewWorker loads the chart and wires up everything the
// configuration asks for.  Background servers run until Close.
func NewWorker(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Worker, error) {
	bs, err := config.ReadFileWithInlines(cfg.Chart)
	if err != nil {
		return nil, err
	}
	chart, err := core.ParseChartBytes(bs)
	if err != nil {
		return nil, errors.Wrap(err, cfg.Chart)
	}

	vars, err := cfg.Vars()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		Config: cfg,
		Logger: logger,
		cancel: cancel,
	}

	if w.storage, err = openStorage(ctx, cfg, logger); err != nil {
		cancel()
		return nil, err
	}
	w.recorder = sio.NewRecorder(w.storage, logger)

	observers := core.Observers{sio.NewLogger(logger), w.recorder}

	if cfg.Metrics != nil {
		ms := sio.NewMetrics(nil)
		observers = append(observers, ms)
		go func() {
			if err := ms.Serve(ctx, cfg.Metrics.Address, logger); err != nil {
				logger.WithError(err).Error("metrics server")
			}
		}()
	}

	if cfg.Firehose != nil {
		f := sio.NewFirehose(logger)
		observers = append(observers, f)
		go f.Run(ctx)
		go func() {
			if err := f.Serve(ctx, cfg.Firehose.Address); err != nil {
				logger.WithError(err).Error("firehose server")
			}
		}()
	}

	if cfg.MQTT != nil {
		if w.mqtt, err = sio.ConnectMQTT(cfg.MQTT, logger); err != nil {
			w.Close()
			return nil, err
		}
		w.publisher = sio.NewMQTTPublisher(w.mqtt, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
		observers = append(observers, w.publisher)
		go w.publisher.Run(ctx)
	}

	interpreter := goja.NewInterpreter()
	interpreter.LibraryProvider = goja.MakeFileLibraryProvider(cfg.Charts)
	interpreter.Logger = logger

	env := &core.Env{
		Registry: primitives.Standard(),
		Charts:   core.NewDirProvider(cfg.Charts),
		Observer: observers,
		Logger:   logger,
		Verbose:  cfg.Verbose,
	}
	w.Machine = core.NewMachine(chart, env, vars)

	w.Machine.SetHandle(primitives.InterpreterHandle, interpreter)

	if cfg.Control != nil {
		w.Machine.SetHandle(primitives.ControlConfigHandle, cfg.Control)
	}

	if s := cfg.Sniffer; s != nil {
		var ps *sniff.PacketSniffer
		if s.File != "" {
			ps = sniff.NewFileSniffer(s.File, logger)
		} else {
			ps = sniff.NewLiveSniffer(s.Interface, logger)
		}
		ps.Queue().Limit = s.Limit
		if s.Filter != "" {
			if err = ps.SetFilter(s.Filter); err != nil {
				w.Close()
				return nil, err
			}
		}
		w.sniffer = ps
		w.Machine.SetHandle(primitives.SnifferHandle, ps)
	}

	return w, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.Storage, error) {
	if cfg.Storage == nil {
		return &storage.NoopStorage{}, nil
	}
	s, err := bolt.NewStorage(cfg.Storage.Bolt)
	if err != nil {
		return nil, err
	}
	s.Logger = logger
	s.Debug = cfg.Verbose
	if err = s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Run runs the machine on its own goroutine and waits for it.  The
// report is returned even when the run failed.
func (w *Worker) Run(ctx context.Context) (*storage.Report, error) {
	w.Logger.WithField("run", w.recorder.Id()).WithField("chart", w.Machine.Chart.Id).Info("starting")

	done := make(chan error, 1)
	go func() {
		done <- w.Machine.Start(ctx)
	}()
	err := <-done

	if !w.recorder.Wait(5 * time.Second) {
		w.Logger.Warn("report not written")
	}
	if err != nil {
		w.Logger.WithError(err).WithField("fatal", core.IsFatal(err)).Error("run failed")
	}
	return w.recorder.Report(), err
}

// Close stops everything NewWorker started.
func (w *Worker) Close() error {
	if w.Machine != nil {
		primitives.Link(w.Machine).Close()
	}
	if w.sniffer != nil {
		w.sniffer.Stop()
	}
	if w.publisher != nil {
		w.publisher.Flush()
	}
	if w.mqtt != nil {
		w.mqtt.Disconnect(250)
	}
	w.cancel()
	if w.storage != nil {
		return w.storage.Close(context.Background())
	}
	return nil
}
