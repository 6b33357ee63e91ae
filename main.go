package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardsync/activity"
	"boardsync/api"
	"boardsync/broadcast"
	"boardsync/domain"
	"boardsync/engine"
	"boardsync/gateway"
	"boardsync/session"
	"boardsync/storage"
)

// boardStore is the full backend surface main wires together; both the
// table store and the in-memory fallback provide it.
type boardStore interface {
	storage.TaskBackend
	FindUsers(ctx context.Context) ([]domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	InsertActivity(ctx context.Context, entry domain.ActivityLog) error
	ActivityByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	usersTableName := os.Getenv("USERS_TABLE")
	activityTableName := os.Getenv("ACTIVITY_TABLE")
	actorID := os.Getenv("DEFAULT_ACTOR_ID")

	var store boardStore
	if connStr != "" && tasksTableName != "" && usersTableName != "" && activityTableName != "" {
		ts, err := storage.NewTableStore(connStr, tasksTableName, usersTableName, activityTableName)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		store = ts
	} else {
		log.Info("storage config missing, using in-memory store with seed data")
		mem := storage.NewMemoryStore()
		storage.Seed(mem)
		if actorID == "" {
			actorID = storage.DefaultActor(mem)
		}
		store = mem
	}

	var tasks storage.TaskBackend = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		ttl := 30 * time.Second
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			ttl = d
		}
		tasks = storage.NewTaskCache(tasks, redis.NewClient(redisOpts), ttl)
	}

	registry := session.NewRegistry()
	router := broadcast.NewRouter(registry, 16)
	logger := log.New()
	gw := gateway.New(
		engine.New(tasks),
		activity.NewRecorder(store, store),
		router,
		registry,
		tasks,
		store,
		store,
		logger,
	)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, api.HeaderSessionID},
	}))

	api.Register(e, gw, router, actorID, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
