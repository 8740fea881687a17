// courtsided is the Courtside settlement and scheduling daemon. It
// advances match lifecycles on a wall-clock tick, settles finished
// matches exactly once, and serves the parlay quote API alongside
// metrics and a streaming WebSocket feed.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbreck/courtside/pkg/api"
	"github.com/tbreck/courtside/pkg/engine"
	"github.com/tbreck/courtside/pkg/engine/lifecycle"
	"github.com/tbreck/courtside/pkg/engine/metrics"
	"github.com/tbreck/courtside/pkg/engine/parlay"
	"github.com/tbreck/courtside/pkg/engine/rating"
	"github.com/tbreck/courtside/pkg/engine/tuning"
	"github.com/tbreck/courtside/pkg/store/postgres"
	"github.com/tbreck/courtside/pkg/store/tokens"
	"github.com/tbreck/courtside/pkg/streaming"
)

var (
	httpAddr       = flag.String("http", ":8080", "HTTP server address")
	tickInterval   = flag.Duration("tick", time.Minute, "Lifecycle scheduler interval")
	settleInterval = flag.Duration("settle", 30*time.Second, "Settlement poll interval")
	tuningFile     = flag.String("tuning", "", "Optional YAML tuning overrides")
	timezone       = flag.String("tz", "UTC", "Civil timezone the schedule is anchored to")
	verbose        = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting Courtside engine daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d, err := newDaemon()
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}
	defer d.store.Close()

	go d.hub.Run(ctx)
	go d.runScheduler(ctx)
	go d.runSettler(ctx)

	server := &http.Server{
		Addr:         *httpAddr,
		Handler:      api.NewRouter(d.handler, nil, d.hub.ServeWS),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", *httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	log.Printf("Daemon running (tick=%s, settle=%s, tz=%s)", *tickInterval, *settleInterval, *timezone)

	<-sigCh
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	log.Println("Goodbye!")
}

type daemon struct {
	store    *postgres.Store
	tokens   *tokens.Store
	rater    *rating.Engine
	hub      *streaming.Hub
	metrics  *metrics.EngineMetrics
	handler  *api.Handler
	location *time.Location
}

func newDaemon() (*daemon, error) {
	tun := tuning.Default()
	if *tuningFile != "" {
		var err error
		tun, err = tuning.LoadFile(*tuningFile)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded tuning overrides from %s", *tuningFile)
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		return nil, err
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	store, err := postgres.Open(dsn)
	if err != nil {
		return nil, err
	}

	d := &daemon{
		store:    store,
		rater:    rating.New(tun),
		hub:      streaming.NewHub(),
		metrics:  metrics.New(),
		location: loc,
	}

	// Token balances are optional: without Redis the safe-bet upsell is
	// simply never granted.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}
		d.tokens = tokens.NewStore(redis.NewClient(opts))
		log.Println("Token store connected")
	} else {
		log.Println("No REDIS_URL provided - safe-bet insurance disabled")
	}

	var tokenSource api.TokenSource
	if d.tokens != nil {
		tokenSource = d.tokens
	}
	d.handler = api.NewHandler(parlay.New(tun), tokenSource, store, store, d.hub, d.metrics)

	return d, nil
}

// runScheduler advances match lifecycles once per tick. Ticks are
// anchored to the configured civil timezone so lock and start deadlines
// follow the schedule as published.
func (d *daemon) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	d.tickOnce(ctx)
	for {
		select {
		case <-ticker.C:
			d.tickOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (d *daemon) tickOnce(ctx context.Context) {
	started := time.Now()
	now := started.In(d.location)

	matches, err := d.store.DueMatches(ctx, now)
	if err != nil {
		log.Printf("[Scheduler] ERROR loading due matches: %v", err)
		d.hub.BroadcastError(err, "scheduler")
		return
	}

	applied := 0
	for _, m := range matches {
		transitions, err := lifecycle.Tick(now, m)
		if err != nil {
			// A malformed schedule is a data bug; keep it visible on
			// every pass until someone fixes the row.
			log.Printf("[Scheduler] ERROR match %s: %v", m.ID, err)
			d.hub.BroadcastError(err, "scheduler")
			continue
		}
		for _, tr := range transitions {
			ok, err := d.store.ApplyTransition(ctx, tr)
			if err != nil {
				log.Printf("[Scheduler] ERROR applying %s to match %s: %v", tr.Type, m.ID, err)
				d.hub.BroadcastError(err, "scheduler")
				continue
			}
			if !ok {
				// Another scheduler instance got there first.
				continue
			}
			lifecycle.Apply(m, tr)
			applied++
			d.metrics.RecordTransition(tr.Type.String())
			d.hub.BroadcastTransition(tr)
			log.Printf("[Scheduler] %s match %s", tr.Type, m.ID)
		}
	}

	d.metrics.RecordTick(time.Since(started).Seconds(), len(matches))
	if *verbose {
		log.Printf("[Scheduler] Pass complete: %d matches scanned, %d transitions", len(matches), applied)
	}
}

// runSettler polls for finished matches awaiting settlement.
func (d *daemon) runSettler(ctx context.Context) {
	ticker := time.NewTicker(*settleInterval)
	defer ticker.Stop()

	d.settleOnce(ctx)
	for {
		select {
		case <-ticker.C:
			d.settleOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (d *daemon) settleOnce(ctx context.Context) {
	pending, err := d.store.FinishedUnsettled(ctx)
	if err != nil {
		log.Printf("[Settlement] ERROR loading pending matches: %v", err)
		d.hub.BroadcastError(err, "settlement")
		return
	}
	if len(pending) == 0 {
		return
	}
	log.Printf("[Settlement] Found %d matches awaiting settlement", len(pending))

	for _, m := range pending {
		if err := d.settleMatch(ctx, m); err != nil {
			// A stuck match is a correctness bug: log loudly and leave
			// it pending for the next pass rather than skipping it.
			log.Printf("[Settlement] ERROR match %s: %v", m.ID, err)
			d.metrics.RecordSettlement("error", -1)
			d.hub.BroadcastError(err, "settlement")
		}
	}
}

func (d *daemon) settleMatch(ctx context.Context, m *engine.Match) error {
	a, err := d.store.Player(ctx, m.PlayerAID)
	if err != nil {
		return err
	}
	b, err := d.store.Player(ctx, m.PlayerBID)
	if err != nil {
		return err
	}

	res, err := d.rater.Settle(m, a, b)
	if errors.Is(err, engine.ErrAlreadySettled) {
		d.metrics.RecordSettlement("already_settled", -1)
		return nil
	}
	if err != nil {
		return err
	}

	if err := d.store.ApplySettlement(ctx, m, a, b); err != nil {
		if errors.Is(err, engine.ErrAlreadySettled) {
			d.metrics.RecordSettlement("already_settled", -1)
			return nil
		}
		return err
	}

	d.metrics.RecordSettlement("settled", res.Delta)
	d.hub.BroadcastSettlement(res)
	log.Printf("[Settlement] Match %s settled: winner %s (+%.0f), probs %.2f/%.2f, points %d/%d",
		m.ID, res.WinnerID, res.Delta, res.ProbA, res.ProbB,
		res.PointsFavorite, res.PointsUnderdog)
	return nil
}
