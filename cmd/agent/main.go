// Command agent is the offline-capable field client. It submits stock
// movements directly against the database when the connection is up, queues
// them in a local file when it is not, and drains the queue once
// connectivity returns.
//
// Usage:
//
//	agent [flags] submit -product <id> -type in|out -qty <n> [-sets <n>] [-date YYYY-MM-DD] [-time HH:MM] [-shelf <id>] [-notes <text>]
//	agent [flags] sync
//	agent [flags] queue
//	agent [flags] watch [-interval <duration>]
//
// The operator identifies with an access token in AGENT_TOKEN (or -token),
// issued by the API server. Tokens verify locally, so a valid token keeps
// working while disconnected.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/config"
	"github.com/example/shelfstock/internal/logger"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/movement"
	"github.com/example/shelfstock/internal/store"
	"github.com/example/shelfstock/internal/syncqueue"
	"go.uber.org/zap"
)

// connFunc adapts a closure to movement.Connectivity.
type connFunc func() bool

func (f connFunc) Online() bool { return f() }

// printNotices writes movement notices to stdout for the operator.
type printNotices struct{}

func (printNotices) Notify(n movement.Notice) {
	fmt.Printf("[%s] %s\n", n.Level, n.Message)
}

func main() {
	envFile := flag.String("env", ".env", "env file to load configuration from")
	queuePath := flag.String("queue", "", "override the offline queue file path")
	token := flag.String("token", os.Getenv("AGENT_TOKEN"), "access token (defaults to AGENT_TOKEN)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	log := logger.Must(logger.New()).Named("agent")
	defer log.Sync()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatalf("configuration error: %v", err)
	}
	if *queuePath != "" {
		cfg.Queue.Path = *queuePath
	}

	queue, err := syncqueue.Open(cfg.Queue.Path)
	if err != nil {
		fatalf("failed to open sync queue %s: %v", cfg.Queue.Path, err)
	}

	// sql.Open does not dial, so starting up disconnected is fine. The
	// prober decides online/offline per operation.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		fatalf("invalid database configuration: %v", err)
	}
	defer db.Close()
	prober := syncqueue.ProbeFunc(func(ctx context.Context) bool {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return db.PingContext(pingCtx) == nil
	})
	st := store.NewPostgresStore(db)

	cmd, args := flag.Arg(0), flag.Args()[1:]

	if cmd == "queue" {
		listQueue(queue)
		return
	}

	// Every other command acts as the operator, so it needs a session.
	if err := cfg.Auth.Validate(); err != nil {
		fatalf("configuration error: %v", err)
	}
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, 15*time.Minute, 7*24*time.Hour)
	if *token == "" {
		fatalf("an access token is required: set AGENT_TOKEN or pass -token")
	}
	claims, err := jwtService.ValidateAccessToken(*token)
	if err != nil {
		fatalf("invalid access token: %v", err)
	}
	ctx := auth.ContextWithClaims(context.Background(), claims)

	switch cmd {
	case "submit":
		runSubmit(ctx, args, st, queue, prober, log)
	case "sync":
		runSync(ctx, st, queue, prober, log)
	case "watch":
		runWatch(ctx, args, st, queue, prober, log)
	default:
		fatalf("unknown command %q", cmd)
	}
}

func runSubmit(ctx context.Context, args []string, st store.Store, queue *syncqueue.Queue, prober syncqueue.Prober, log *zap.Logger) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	product := fs.String("product", "", "product id (required)")
	movType := fs.String("type", "", "movement type: in or out (required)")
	qty := fs.Int("qty", 0, "unit quantity")
	sets := fs.Int("sets", 0, "set quantity")
	date := fs.String("date", time.Now().Format("2006-01-02"), "movement date")
	movTime := fs.String("time", "", "movement time (HH:MM)")
	shelf := fs.String("shelf", "", "shelf id")
	notes := fs.String("notes", "", "free-form notes")
	fs.Parse(args)

	if *product == "" || *movType == "" {
		fs.Usage()
		os.Exit(2)
	}

	online := prober.Probe(ctx)
	svc := movement.NewService(st, connFunc(func() bool { return online }), queue, nil, log)

	notices := printNotices{}
	result, err := svc.Create(ctx, movement.CreateMovementInput{
		ProductID:   *product,
		Type:        model.MovementType(*movType),
		Quantity:    *qty,
		SetQuantity: *sets,
		Date:        *date,
		Time:        *movTime,
		Notes:       *notes,
		ShelfID:     *shelf,
	}, notices)
	if err != nil {
		fatalf("submit failed: %v", err)
	}
	if result != nil {
		fmt.Printf("recorded %s movement %s for %s\n", result.Type, result.ID, result.ProductName)
	}
}

func runSync(ctx context.Context, st store.Store, queue *syncqueue.Queue, prober syncqueue.Prober, log *zap.Logger) {
	if queue.Len() == 0 {
		fmt.Println("sync queue is empty")
		return
	}

	online := prober.Probe(ctx)
	if !online {
		fatalf("still offline, %d action(s) left queued", queue.Len())
	}

	svc := movement.NewService(st, movement.AlwaysOnline{}, queue, nil, log)
	syncer := syncqueue.NewSyncer(queue, svc, connFunc(func() bool { return online }), log)
	if _, err := syncer.SyncAll(ctx, printNotices{}); err != nil {
		fatalf("sync failed: %v", err)
	}
}

func runWatch(ctx context.Context, args []string, st store.Store, queue *syncqueue.Queue, prober syncqueue.Prober, log *zap.Logger) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 10*time.Second, "connectivity poll interval")
	fs.Parse(args)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := movement.NewService(st, movement.AlwaysOnline{}, queue, nil, log)

	var mon *syncqueue.Monitor
	syncer := syncqueue.NewSyncer(queue, svc, connFunc(func() bool { return mon.Online() }), log)
	mon = syncqueue.NewMonitor(prober, syncer, printNotices{}, *interval, log)

	fmt.Printf("watching connectivity every %s, %d action(s) queued\n", *interval, queue.Len())
	mon.Run(ctx)
}

func listQueue(queue *syncqueue.Queue) {
	actions := queue.List()
	if len(actions) == 0 {
		fmt.Println("sync queue is empty")
		return
	}
	for _, a := range actions {
		m := a.Movement
		fmt.Printf("%s  %s  product=%s %s qty=%d sets=%d  queued=%s retries=%d\n",
			a.ID, a.Kind, m.ProductID, m.Type, m.Quantity, m.SetQuantity,
			a.CreatedAt.Format(time.RFC3339), a.Retries)
	}
	fmt.Printf("%d pending action(s)\n", len(actions))
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: agent [flags] <command> [command flags]

commands:
  submit   record a stock movement (queued locally when offline)
  sync     replay queued movements against the server
  queue    list locally queued movements
  watch    poll connectivity and sync automatically on reconnect

flags:
`)
	flag.PrintDefaults()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
