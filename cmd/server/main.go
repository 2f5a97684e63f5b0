package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/auth"
	"github.com/longtk/giapha/internal/config"
	"github.com/longtk/giapha/internal/database"
	"github.com/longtk/giapha/internal/handler"
	"github.com/longtk/giapha/internal/queue"
	"github.com/longtk/giapha/internal/repository"
	"github.com/longtk/giapha/internal/router"
	"github.com/longtk/giapha/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// The refresh-token store lives in Redis; without it nobody can
		// log in, so this is fatal unlike the optional middleware uses.
		log.Fatal("redis unavailable: refresh-token store requires it")
	}
	defer func() { _ = rdb.Close() }()

	codec := auth.NewCodec(cfg.TokenSecrets(), cfg.TokenTTLs())

	users := repository.NewUserRepo(db)
	trees := repository.NewTreeRepo(db)
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenStore(rdb)

	authSvc := service.NewAuthService(users, tokens, codec, service.NewAMQPMailPublisher(), cfg.PwdSecret)
	treeSvc := service.NewTreeService(trees, users)
	memberSvc := service.NewMemberService(members)

	// Drain mail events in the background; the loop reconnects on broker
	// failures and never takes the API down.
	go func() {
		if err := queue.StartMailConsumer(); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Trees:   handler.NewTreeHandler(treeSvc),
		Members: handler.NewMemberHandler(memberSvc),
		Admin:   handler.NewAdminHandler(users),
	}, codec, users, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
