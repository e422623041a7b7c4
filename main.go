package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"workflow-api/api"
	"workflow-api/domain"
	"workflow-api/storage"
	"workflow-api/subscription"
)

const updatesChannel = "board:updates"

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	backend := strings.ToLower(os.Getenv("STORAGE_BACKEND"))
	if backend == "" {
		backend = "local"
	}

	rc := redisClient()

	var store domain.Store
	var blobs domain.BlobStore
	var contentTyper api.BlobReader
	var purger domain.Purger
	var deduper domain.Deduper = storage.LocalDeduper{}
	ctx := context.Background()

	switch backend {
	case "azure":
		connStr := os.Getenv("STORAGE_CONNECTION_STRING")
		tableName := os.Getenv("BOARD_TABLE")
		purgeQueueName := os.Getenv("PURGE_QUEUE")
		if connStr == "" || tableName == "" || purgeQueueName == "" {
			log.Fatal("missing storage config")
		}
		tables, err := storage.NewTables(connStr, tableName, func() (domain.SeedData, error) {
			return domain.NewSeedData(time.Now(), nil)
		})
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		store = tables

		bucket := os.Getenv("BLOB_BUCKET")
		if bucket == "" {
			log.Fatal("missing blob config")
		}
		s3blobs, err := storage.NewS3Blobs(ctx, bucket)
		if err != nil {
			log.Fatalf("blob storage: %v", err)
		}
		blobs = s3blobs

		queue, err := storage.NewPurgeQueue(connStr, purgeQueueName)
		if err != nil {
			log.Fatalf("purge queue: %v", err)
		}
		purger = queue
		go queue.RunPurgeWorker(ctx, blobs)

		if rc != nil {
			deduper = storage.NewRedisDeduper(rc, dedupeTTL())
		}
	case "local":
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "./data"
		}
		local, err := storage.NewLocal(dataDir, func() (domain.SeedData, error) {
			return domain.NewSeedData(time.Now(), domain.BcryptHasher)
		})
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		store = local

		localBlobs, err := storage.NewLocalBlobs(dataDir + "/blobs")
		if err != nil {
			log.Fatalf("blob storage: %v", err)
		}
		blobs = localBlobs
		contentTyper = localBlobs
		purger = storage.NewInlinePurger(blobs)
	default:
		log.Fatalf("unknown STORAGE_BACKEND: %s", backend)
	}

	if rc != nil {
		store = storage.NewCache(store, rc, cacheTTL())
	}

	broker := subscription.NewBroker()
	var bus *subscription.Publisher
	if rc != nil {
		bus = subscription.NewPublisher(subscription.NewRedisSink(rc, updatesChannel), 4, 256)
		go subscription.Listen(ctx, rc, updatesChannel, broker)
	} else {
		bus = subscription.NewPublisher(broker, 4, 256)
	}
	defer bus.Close()

	localIdentity := backend == "local"
	auth := buildAuth(localIdentity)

	tasks := domain.NewTaskService(store, blobs, purger, bus, deduper)
	members := domain.NewMemberService(store, blobs, bus)
	notifications := domain.NewNotificationService(store, bus, deduper)
	board := domain.NewBoardService(store, purger, bus, localIdentity)

	notifier := domain.NewNotifier(store, bus, deduper)
	wake := make(chan struct{}, 1)
	go notifier.Run(ctx, notifyInterval(), wake)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	var blobReader api.BlobReader = blobs
	if contentTyper != nil {
		blobReader = contentTyper
	}
	api.Register(e, api.Deps{
		Store:         store,
		Blobs:         blobReader,
		Auth:          auth,
		Tasks:         tasks,
		Members:       members,
		Notifications: notifications,
		Board:         board,
		Broker:        broker,
		Wake:          wake,
		LocalIdentity: localIdentity,
	})

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}
	e.Logger.Fatal(e.Start(listenAddr))
}

func buildAuth(localIdentity bool) *api.Auth {
	if localIdentity {
		secret := os.Getenv("SESSION_SECRET")
		if secret == "" {
			log.Fatal("missing SESSION_SECRET")
		}
		return api.NewLocalAuth([]byte(secret))
	}
	audience := os.Getenv("AUTH0_AUDIENCE")
	authDomain := os.Getenv("AUTH0_DOMAIN")
	if audience == "" || authDomain == "" {
		log.Fatal("missing Auth0 config")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		log.Fatalf("jwks: %v", err)
	}
	return api.NewAuth(jwks, audience, "https://"+authDomain+"/")
}

func redisClient() *redis.Client {
	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		return nil
	}
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
	return redis.NewClient(redisOpts)
}

func dedupeTTL() time.Duration {
	return envDuration("DEDUPER_TTL", 24*time.Hour)
}

func cacheTTL() time.Duration {
	return envDuration("CACHE_TTL", 5*time.Minute)
}

func notifyInterval() time.Duration {
	return envDuration("NOTIFY_INTERVAL", time.Minute)
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %v", name, v)
	}
	return d
}
