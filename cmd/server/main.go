package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AbdullaK123/book-api/graph"
	"github.com/AbdullaK123/book-api/internal/auth"
	"github.com/AbdullaK123/book-api/internal/comments"
	"github.com/AbdullaK123/book-api/internal/config"
	"github.com/AbdullaK123/book-api/internal/dataloader"
	"github.com/AbdullaK123/book-api/internal/domain"
	"github.com/AbdullaK123/book-api/internal/events"
	"github.com/AbdullaK123/book-api/internal/logging"
	"github.com/AbdullaK123/book-api/internal/storage"
	"github.com/AbdullaK123/book-api/internal/storage/inmemory"
	"github.com/AbdullaK123/book-api/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	storageType := flag.String("storage", cfg.Storage, "Storage type (in-memory or postgres)")
	flag.Parse()
	cfg.Storage = *storageType

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting server", zap.String("storage", cfg.Storage))

	var (
		store storage.Storage
		seed  *inmemory.Store
	)
	if cfg.Storage == config.StoragePostgres {
		pg, err := postgres.New(cfg.Database.URL, postgres.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime,
			LogLevel:     logging.GormLevel(cfg.Log.Level),
		})
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	} else {
		seed = inmemory.New()
		store = seed
	}

	observer := events.NewObserver()
	notifiers := events.Multi{observer}
	if cfg.NATS.URL != "" {
		publisher, err := events.NewPublisher(cfg.NATS.URL, cfg.NATS.Stream, log)
		if err != nil {
			// Notifications are best effort; the API keeps serving without them.
			log.Error("NATS unavailable, comment events will not be published", zap.Error(err))
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	svc := comments.New(store,
		comments.WithNotifier(notifiers),
		comments.WithLogger(log.Named("comments")),
	)

	if seed != nil {
		// Populate demo data for local runs.
		fillWithMockData(seed, svc, log)
	}

	resolver := &graph.Resolver{
		CommentService: svc,
		Observer:       observer,
		Log:            log.Named("graphql"),
	}
	srv := handler.NewDefaultServer(graph.NewExecutableSchema(graph.Config{Resolvers: resolver}))
	srv.AddTransport(&transport.Websocket{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		KeepAlivePingInterval: 10 * time.Second,
	})
	srv.SetErrorPresenter(graph.ErrorPresenter(log))
	srv.SetRecoverFunc(graph.RecoverFunc(log))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(log))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	verifier := auth.JWTVerifier{Secret: []byte(cfg.Auth.JWTSecret)}

	router.Handle("/", playground.Handler("GraphQL playground", "/query"))
	router.With(auth.Middleware(verifier, log)).Handle("/query", dataloader.Middleware(store, srv))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("connect for GraphQL playground", zap.String("url", "http://localhost:"+cfg.Server.Port+"/"))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func fillWithMockData(store *inmemory.Store, svc *comments.Service, log *zap.Logger) {
	ctx := context.Background()

	store.PutUser(domain.User{ID: 1, Username: "reader", Role: "user"})
	store.PutUser(domain.User{ID: 2, Username: "critic", Role: "user"})
	store.PutUser(domain.User{ID: 3, Username: "moderator", Role: domain.RoleAdmin})

	content := "A slow start, but the last third is worth it."
	review, err := store.CreateReview(ctx, &domain.Review{BookID: 1, UserID: 2, Rating: 4, Content: &content})
	if err != nil {
		log.Fatal("fillWithMockData: failed to create review", zap.Error(err))
	}

	// 1. Root comment.
	c1, err := svc.CreateComment(ctx, comments.CreateInput{
		Content:  "Agreed about the ending. The middle dragged for me too.",
		ReviewID: review.ID,
	}, 1)
	if err != nil {
		log.Fatal("fillWithMockData: failed to create comment 1", zap.Error(err))
	}

	// 2. Reply to the first one.
	_, err = svc.CreateComment(ctx, comments.CreateInput{
		Content:  "Stick with it, the payoff is real.",
		ReviewID: review.ID,
		ParentID: &c1.ID,
	}, 2)
	if err != nil {
		log.Fatal("fillWithMockData: failed to create reply", zap.Error(err))
	}

	// 3. Second root comment, liked once.
	c2, err := svc.CreateComment(ctx, comments.CreateInput{
		Content:  "Would you recommend the sequel?",
		ReviewID: review.ID,
	}, 3)
	if err != nil {
		log.Fatal("fillWithMockData: failed to create comment 2", zap.Error(err))
	}
	if _, err := svc.LikeComment(ctx, c2.ID, 1); err != nil {
		log.Fatal("fillWithMockData: failed to like comment 2", zap.Error(err))
	}

	log.Info("mock data filled", zap.Int64("review_id", review.ID))
}
