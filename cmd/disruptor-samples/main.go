// Command disruptor-samples runs the sample scenarios and reports how long
// each one took.
//
//	disruptor-samples -config samples.yaml -scenarios sum,replication
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ringwire/disruptor"
	"github.com/ringwire/disruptor/internal/config"
	"github.com/ringwire/disruptor/internal/sample"
	"github.com/ringwire/disruptor/logging"
	"github.com/ringwire/disruptor/replicate"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		events     = flag.Int("events", 0, "number of events to publish, overrides the configuration")
		bufferSize = flag.Int("buffer", 0, "ring buffer size, overrides the configuration")
		scenarios  = flag.String("scenarios", "", "comma separated scenarios, overrides the configuration")
		metrics    = flag.Bool("metrics", false, "print the disruptor metrics after each scenario")
	)
	flag.Parse()
	defer logging.Cleanup()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *events > 0 {
		cfg.Events = *events
	}
	if *bufferSize > 0 {
		cfg.BufferSize = *bufferSize
	}
	if *scenarios != "" {
		cfg.Scenarios = strings.Split(*scenarios, ",")
	}
	cfg.Metrics = cfg.Metrics || *metrics
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	r := &runner{cfg: cfg, out: os.Stdout}
	for _, name := range cfg.Scenarios {
		if err := r.run(name); err != nil {
			log.Fatalf("Scenario %s failed: %v", name, err)
		}
	}
}

type runner struct {
	cfg      config.Config
	out      io.Writer
	registry *prometheus.Registry
}

func (r *runner) run(name string) error {
	r.registry = prometheus.NewRegistry()
	start := time.Now()
	var (
		report string
		err    error
	)
	switch name {
	case config.ScenarioSum:
		report, err = r.sum(false)
	case config.ScenarioTranslator:
		report, err = r.sum(true)
	case config.ScenarioFanOut:
		report, err = r.fanOut()
	case config.ScenarioPipeline:
		report, err = r.pipeline()
	case config.ScenarioReplication:
		report, err = r.replication()
	default:
		err = fmt.Errorf("unknown scenario %q", name)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	events := r.cfg.Events
	if name == config.ScenarioFanOut || name == config.ScenarioPipeline {
		events = r.cfg.SlowEvents
	}
	fmt.Fprintf(r.out, "%-12s %8d events in %-14v %12.0f events/s  %s\n",
		name, events, elapsed, float64(events)/elapsed.Seconds(), report)
	return nil
}

// newDisruptor builds a disruptor and the executor it runs on.
// release frees the executor once the disruptor is shut down.
func (r *runner) newDisruptor(name string, processors int) (d *disruptor.Disruptor[sample.Slot], release func(), err error) {
	pt, err := r.cfg.Producer()
	if err != nil {
		return nil, nil, err
	}
	ws, err := r.cfg.Strategy()
	if err != nil {
		return nil, nil, err
	}

	var exec disruptor.Executor = disruptor.GoroutineExecutor{}
	release = func() {}
	if r.cfg.Executor == "ants" {
		pool, err := disruptor.NewAntsExecutor(max(r.cfg.PoolSize, processors), nil)
		if err != nil {
			return nil, nil, err
		}
		exec, release = pool, pool.Release
	}
	if r.cfg.LockOSThread {
		exec = disruptor.LockOSThread(exec)
	}

	opts := []disruptor.Option{
		disruptor.WithName(name),
		disruptor.WithProducerType(pt),
		disruptor.WithWaitStrategy(ws),
	}
	if r.cfg.Metrics {
		opts = append(opts, disruptor.WithMetrics(r.registry))
	}
	d, err = disruptor.New(sample.NewSlot, r.cfg.BufferSize, exec, opts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return d, release, nil
}

// finish prints the metrics if enabled, then shuts d down.
func (r *runner) finish(d *disruptor.Disruptor[sample.Slot], release func()) {
	if r.cfg.Metrics {
		r.printMetrics()
	}
	d.Shutdown()
	release()
}

func (r *runner) sum(translator bool) (string, error) {
	d, release, err := r.newDisruptor("sum", 1)
	if err != nil {
		return "", err
	}
	h := sample.NewBusinessHandler("sum")
	d.HandleEventsWith(h)
	rb, err := d.Start()
	if err != nil {
		release()
		return "", err
	}

	var last int64
	if translator {
		last, err = sample.Publish(rb, r.cfg.Events, r.cfg.Value)
	} else {
		last = sample.PublishDirect(rb, r.cfg.Events, r.cfg.Value)
	}
	if err == nil {
		err = waitFor(func() bool { return h.LastSeen() == last })
	}
	r.finish(d, release)
	if err != nil {
		return "", err
	}
	if want := uint64(r.cfg.Events) * uint64(r.cfg.Value); h.Sum() != want {
		return "", fmt.Errorf("sum is %d, want %d", h.Sum(), want)
	}
	return fmt.Sprintf("sum=%d", h.Sum()), nil
}

func (r *runner) fanOut() (string, error) {
	d, release, err := r.newDisruptor("fanout", 2)
	if err != nil {
		return "", err
	}
	constant := sample.NewBusinessHandler("constant")
	constant.Delay = sample.ConstantDelay(r.cfg.Delay.Constant)
	random := sample.NewBusinessHandler("random")
	random.Delay = sample.RandomDelay(r.cfg.Delay.RandomMin, r.cfg.Delay.RandomMax)
	d.HandleEventsWith(constant, random)
	rb, err := d.Start()
	if err != nil {
		release()
		return "", err
	}

	last, err := sample.Publish(rb, r.cfg.SlowEvents, r.cfg.Value)
	if err == nil {
		err = waitFor(func() bool { return constant.LastSeen() == last && random.LastSeen() == last })
	}
	r.finish(d, release)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("constant=%d random=%d", constant.Sum(), random.Sum()), nil
}

func (r *runner) pipeline() (string, error) {
	d, release, err := r.newDisruptor("pipeline", 2)
	if err != nil {
		return "", err
	}
	journal := sample.NewJournalHandler(io.Discard, r.cfg.Delay.Flush)
	business := sample.NewBusinessHandler("business")
	d.HandleEventsWith(journal).Then(business)
	rb, err := d.Start()
	if err != nil {
		release()
		return "", err
	}

	last, err := sample.Publish(rb, r.cfg.SlowEvents, r.cfg.Value)
	if err == nil {
		err = waitFor(func() bool { return business.LastSeen() == last })
	}
	r.finish(d, release)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("journaled=%d batches=%d business=%d", journal.Written(), journal.Batches(), business.Sum()), nil
}

func (r *runner) replication() (string, error) {
	primary, releasePrimary, err := r.newDisruptor("primary", 2)
	if err != nil {
		return "", err
	}
	replica, releaseReplica, err := r.newDisruptor("replica", 1)
	if err != nil {
		releasePrimary()
		return "", err
	}

	replicator := replicate.New(sample.Copy)
	primaryBusiness := sample.NewBusinessHandler("primary")
	replicaBusiness := sample.NewBusinessHandler("replica")
	primary.HandleEventsWith(replicator).Then(primaryBusiness)
	replica.HandleEventsWith(replicaBusiness)

	target, err := replica.Start()
	if err != nil {
		releasePrimary()
		releaseReplica()
		return "", err
	}
	replicator.SetTarget(target)
	rb, err := primary.Start()
	if err != nil {
		r.finish(replica, releaseReplica)
		releasePrimary()
		return "", err
	}

	last, err := sample.Publish(rb, r.cfg.Events, r.cfg.Value)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = replicator.WaitForReplication(ctx, last)
		cancel()
	}
	if err == nil {
		err = waitFor(func() bool { return primaryBusiness.LastSeen() == last && replicaBusiness.LastSeen() == last })
	}
	r.finish(primary, releasePrimary)
	r.finish(replica, releaseReplica)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("replicated=%d primary=%d replica=%d",
		replicator.LastReplicatedSequence()+1, primaryBusiness.Sum(), replicaBusiness.Sum()), nil
}

var errTimeout = errors.New("timed out waiting for handlers")

// waitFor polls cond for up to a minute.
func waitFor(cond func() bool) error {
	deadline := time.Now().Add(time.Minute)
	for !cond() {
		if time.Now().After(deadline) {
			return errTimeout
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

func (r *runner) printMetrics() {
	families, err := r.registry.Gather()
	if err != nil {
		logging.Errorf("gather metrics: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetGauge().GetValue()
			if c := m.GetCounter(); c != nil {
				value = c.GetValue()
			}
			fmt.Fprintf(r.out, "  %s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}
