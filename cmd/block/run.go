package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dudk/block"
	"github.com/dudk/block/config"
	"github.com/dudk/block/log"
	"github.com/dudk/block/metric"
)

type runCommand struct {
	config  string
	metrics string
}

// Name implements command interface.
func (cmd *runCommand) Name() string {
	return "run"
}

func (cmd *runCommand) Help() string {
	return "Run blocks described in topology file"
}

func (cmd *runCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "topology file (required)")
	fs.StringVar(&cmd.metrics, "metrics", "", "address to serve prometheus metrics on")
}

func (cmd *runCommand) Run(w io.Writer) (err error) {
	if cmd.config == "" {
		return fmt.Errorf("missing -config required flag")
	}
	t, err := config.Load(cmd.config)
	if err != nil {
		return err
	}
	if err := t.Validate(knownKind); err != nil {
		return err
	}

	logger := log.GetLogger()
	logger.SetOutput(w)
	reg := prometheus.NewRegistry()
	if cmd.metrics != "" {
		srv := serveMetrics(cmd.metrics, reg, logger)
		defer srv.Close()
	}

	g := graph{
		log:     logger,
		metrics: metric.New(reg),
	}
	defer func() {
		err = multierr.Append(err, g.disconnect())
	}()
	if err := g.build(t); err != nil {
		return err
	}
	return g.run()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

type link struct {
	from *block.Block
	to   []*block.Block
}

// graph holds blocks and connections built from topology.
type graph struct {
	log     logrus.FieldLogger
	metrics *metric.Metrics
	blocks  []*block.Block
	links   []link
}

func (g *graph) build(t *config.Topology) error {
	byName := make(map[string]*block.Block, len(t.Blocks))
	for _, cb := range t.Blocks {
		options, err := cb.Options()
		if err != nil {
			return err
		}
		routine, err := kinds[cb.Kind].routine(cb.Params)
		if err != nil {
			return fmt.Errorf("block %s: %w", cb.Name, err)
		}
		b, err := block.New(append(options, block.WithLogger(g.log), block.WithRoutine(routine))...)
		if err != nil {
			return fmt.Errorf("block %s: %w", cb.Name, err)
		}
		g.blocks = append(g.blocks, b)
		byName[cb.Name] = b
	}

	for _, l := range t.Links {
		from := byName[l.From]
		to := make([]*block.Block, 0, len(l.To))
		for _, name := range l.To {
			to = append(to, byName[name])
		}
		g.links = append(g.links, link{from: from, to: to})
		if from.Producer().Shape == block.Single {
			if _, err := block.ConnectOneToOne(from, to[0], block.WithMetrics(g.metrics)); err != nil {
				return err
			}
			continue
		}
		n, err := block.ConnectOneToMany(from, to, block.WithMetrics(g.metrics))
		if n != len(to) {
			return fmt.Errorf("%v: attached %d of %d consumers: %w", from, n, len(to), err)
		}
	}

	var errs error
	for _, b := range g.blocks {
		if b.Producer() != nil && b.Producer().Out() == nil {
			errs = multierr.Append(errs, fmt.Errorf("%v: producer is not linked", b))
		}
		if b.Consumer() != nil && b.Consumer().In() == nil {
			errs = multierr.Append(errs, fmt.Errorf("%v: consumer is not linked", b))
		}
	}
	return errs
}

// run starts all blocks and waits for them. If some blocks fail to
// start, outputs of those blocks are shut down so downstream can finish.
func (g *graph) run() error {
	n, err := block.StartAll(g.blocks...)
	if n != len(g.blocks) {
		g.log.WithField("category", log.Shutdown).Warnf("started %d of %d blocks", n, len(g.blocks))
		for _, b := range g.blocks {
			if block.IsRunning(b) || b.Producer() == nil || b.Producer().Out() == nil {
				continue
			}
			err = multierr.Append(err, b.Producer().Out().Shutdown())
		}
	}
	return multierr.Append(err, block.WaitAll(g.blocks...))
}

func (g *graph) disconnect() error {
	var errs error
	for _, l := range g.links {
		if l.from.Producer().Shape == block.Single {
			errs = multierr.Append(errs, block.DisconnectOneToOne(l.from, l.to[0]))
			continue
		}
		errs = multierr.Append(errs, block.DisconnectOneToMany(l.from, l.to))
	}
	return errs
}
