package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowmetrics/semgraph/internal/queue"
	mid "github.com/flowmetrics/semgraph/internal/server/middleware"
	"github.com/flowmetrics/semgraph/internal/server/ws"
	"github.com/flowmetrics/semgraph/internal/storage"
	"github.com/flowmetrics/semgraph/internal/util"
	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/graph"
	"github.com/flowmetrics/semgraph/pkg/logger"
	"github.com/flowmetrics/semgraph/pkg/store"
	"github.com/flowmetrics/semgraph/pkg/store/memory"
	graphstorage "github.com/flowmetrics/semgraph/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var k *keyfunc.Keyfunc
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		key, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		k = &key
	}

	graphStore := newGraphStore(ctx)
	defer graphStore.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	hub := ws.NewHub()
	go subscribeGraphUpdates(ctx, que, hub)

	masterAPIKey := util.GetEnv("MASTER_API_KEY")

	e.Use(mid.AppContextMiddleware(graphStore, ch, k, s3, hub, masterAPIKey))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())

	RegisterRoutes(e, hub)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// newGraphStore selects the storage backend. The default is PostgreSQL;
// STORAGE_BACKEND=memory serves a read-only snapshot loaded from the
// artifact directory instead, without any database.
func newGraphStore(ctx context.Context) store.GraphStorage {
	if util.GetEnvString("STORAGE_BACKEND", "postgres") == "memory" {
		snap := &common.Snapshot{}
		dir := util.GetEnv("GRAPH_DIR")
		name := util.GetEnvString("GRAPH_NAME", "flowmetrics_graph")
		if dir != "" {
			loaded, err := graph.LoadSnapshot(dir, name)
			if err != nil {
				logger.Fatal("Failed to load graph snapshot", "dir", dir, "name", name, "err", err)
			}
			snap = loaded
			logger.Info("Loaded graph snapshot", "nodes", len(snap.Nodes), "edges", len(snap.Edges))
		}
		return memory.NewGraphMemoryStorage(snap)
	}

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := RunMigrations(databaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database config", "err", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	return graphstorage.NewGraphDBStorage(pool)
}

// subscribeGraphUpdates relays rebuild notifications from the pubsub
// exchange to connected websocket clients.
func subscribeGraphUpdates(ctx context.Context, conn *amqp091.Connection, hub *ws.Hub) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("[WS] Failed to open pubsub channel", "err", err)
		return
	}
	defer ch.Close()

	err = ch.ExchangeDeclare("pubsub_exchange", "topic", false, true, false, false, nil)
	if err != nil {
		logger.Error("[WS] Failed to declare pubsub exchange", "err", err)
		return
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		logger.Error("[WS] Failed to declare pubsub queue", "err", err)
		return
	}
	if err := ch.QueueBind(q.Name, queue.GraphUpdatedTopic, "pubsub_exchange", false, nil); err != nil {
		logger.Error("[WS] Failed to bind pubsub queue", "err", err)
		return
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		logger.Error("[WS] Failed to consume pubsub queue", "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			hub.Broadcast(msg.Body)
		}
	}
}
