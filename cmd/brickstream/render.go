package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/brickstream"
	"github.com/hupe1980/brickstream/histogram"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/prom"
	"github.com/hupe1980/brickstream/source"
	"github.com/hupe1980/brickstream/tier"
)

var (
	framesFlag = &cli.IntFlag{
		Name:     "frames",
		Usage:    "Number of frames to render",
		Value:    120,
		Category: streamCategory,
	}
	distanceFlag = &cli.Float64Flag{
		Name:     "distance",
		Usage:    "Camera orbit distance in volume widths",
		Value:    2.5,
		Category: streamCategory,
	}
	nodesFlag = &cli.IntFlag{
		Name:     "nodes",
		Usage:    "Simulated render nodes",
		Value:    4,
		Category: clusterCategory,
	}
	binsFlag = &cli.IntFlag{
		Name:     "bins",
		Usage:    "Histogram bins",
		Value:    64,
		Category: clusterCategory,
	}
	delayFlag = &cli.Float64Flag{
		Name:     "delay",
		Usage:    "Probability that a contribution arrives one frame late",
		Value:    0.1,
		Category: clusterCategory,
	}
	seedFlag = &cli.Int64Flag{
		Name:     "seed",
		Usage:    "Seed for the simulated transport",
		Value:    1,
		Category: clusterCategory,
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Serve Prometheus metrics on this address (e.g. :9090)",
		Category: streamCategory,
	}
)

var renderCommand = &cli.Command{
	Name:      "render",
	Usage:     "Stream a packed volume headless along an orbiting camera",
	ArgsUsage: " ",
	Flags: append(append([]cli.Flag{
		framesFlag,
		distanceFlag,
		nodesFlag,
		binsFlag,
		delayFlag,
		seedFlag,
		metricsAddrFlag,
	}, configFlags...), storeFlags...),
	Action: render,
}

func render(ctx *cli.Context) error {
	logger, err := newLogger(ctx)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	src, err := source.Open(ctx.Context, store, source.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer src.Close()

	var (
		metrics brickstream.MetricsCollector
		basic   *brickstream.BasicMetricsCollector
	)
	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		reg := prometheus.NewRegistry()
		metrics = prom.NewCollector(reg)
		stop := serveMetrics(addr, reg, logger)
		defer stop()
	} else {
		basic = &brickstream.BasicMetricsCollector{}
		metrics = basic
	}

	up := tier.NewHostUploader()
	s, err := brickstream.New(src, up,
		brickstream.WithConfig(cfg),
		brickstream.WithLogger(logger),
		brickstream.WithMetricsCollector(metrics),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	agg := brickstream.NewAggregator(
		brickstream.WithConfig(cfg),
		brickstream.WithLogger(logger),
		brickstream.WithMetricsCollector(metrics),
	)
	results := make(chan histogram.Result, 16)
	sub := agg.Subscribe(results)

	var (
		wg        sync.WaitGroup
		published int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case r := <-results:
				published++
				logger.Debug("histogram", "frame", r.FrameID, "total", r.Histogram.Total())
			case <-sub.Err():
				for len(results) > 0 {
					<-results
					published++
				}
				return
			}
		}
	}()

	info := s.Info()
	cl := newCluster(ctx.Int(nodesFlag.Name), ctx.Int(binsFlag.Name), ctx.Float64(delayFlag.Name), ctx.Int64(seedFlag.Name))
	receive := func(msgs [][]byte) error {
		for _, m := range msgs {
			c, err := histogram.DecodeContribution(cl.codec, m)
			if err != nil {
				return err
			}
			agg.Receive(c)
		}
		return nil
	}

	frames := ctx.Int(framesFlag.Name)
	dist := ctx.Float64(distanceFlag.Name) * info.WorldSize.MaxComponent()
	var missing int
	start := time.Now()
	for i := range frames {
		angle := 2 * math.Pi * float64(i) / float64(max(frames, 1))
		f := model.NewFrustum(model.Translate(model.Vec3{Z: -dist}).Mul(model.RotateY(angle)))

		frame, err := s.BeginFrame(f, s.Select(f))
		if err != nil {
			return err
		}
		missing += frame.Missing()
		msgs, err := cl.contribute(frame, up, info.DataType)
		if endErr := s.EndFrame(); err == nil {
			err = endErr
		}
		if err != nil {
			return err
		}
		if err := receive(cl.deliver(msgs)); err != nil {
			return err
		}
	}
	if err := receive(cl.flush()); err != nil {
		return err
	}
	elapsed := time.Since(start)

	agg.Close()
	wg.Wait()

	st := s.Stats()
	fmt.Printf("frames: %d in %v, missing draws: %d\n", st.Frame, elapsed.Round(time.Millisecond), missing)
	fmt.Printf("gpu: %d entries, %d/%d bytes, %d hits, %d misses, %d evictions\n",
		st.GPU.Entries, st.GPU.UsedBytes, st.GPU.Budget, st.GPU.Hits, st.GPU.Misses, st.GPU.Evictions)
	fmt.Printf("cpu: %d entries, %d/%d bytes, %d fills, %d failures, %d evictions\n",
		st.CPU.Entries, st.CPU.UsedBytes, st.CPU.Budget, st.CPU.Fills, st.CPU.FillFailures, st.CPU.Evictions)
	fmt.Printf("histograms: %d published, %d frames still pending\n", published, len(agg.Pending()))
	if basic != nil {
		ms := basic.GetStats()
		fmt.Printf("histogram events: %d suppressed, %d abandoned, %d rejected\n",
			ms.HistogramsSuppressed, ms.HistogramsAbandoned, ms.HistogramsRejected)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *brickstream.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
