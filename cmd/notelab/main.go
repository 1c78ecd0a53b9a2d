package main

import (
	"context"
	"database/sql"
	"time"

	config "github.com/davicafu/notelab/internal/config"
	noteApp "github.com/davicafu/notelab/internal/notes/application"
	noteDomain "github.com/davicafu/notelab/internal/notes/domain"
	noteEvents "github.com/davicafu/notelab/internal/notes/infra/inbound/events"
	noteHttp "github.com/davicafu/notelab/internal/notes/infra/inbound/http"
	noteCache "github.com/davicafu/notelab/internal/notes/infra/outbound/cache"
	"github.com/davicafu/notelab/internal/notes/infra/outbound/connectivity"
	noteMongo "github.com/davicafu/notelab/internal/notes/infra/outbound/db/mongodb"
	notePostgres "github.com/davicafu/notelab/internal/notes/infra/outbound/db/postgre"
	noteSqlite "github.com/davicafu/notelab/internal/notes/infra/outbound/db/sqlite"
	infraEvents "github.com/davicafu/notelab/internal/shared/infra/events"
	sharedBus "github.com/davicafu/notelab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/notelab/internal/shared/infra/platform/cache"
	sharedKV "github.com/davicafu/notelab/internal/shared/infra/platform/kv"
	syncApp "github.com/davicafu/notelab/internal/sync/application"
	"github.com/davicafu/notelab/internal/sync/draft"
	"github.com/davicafu/notelab/internal/sync/outbox"
	"github.com/davicafu/notelab/internal/sync/relayer"
	"github.com/davicafu/notelab/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatal("failed to open SQLite", zap.Error(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping SQLite", zap.Error(err))
	}
	if err := sharedKV.InitSQLite(db); err != nil {
		log.Fatal("failed to initialize kv store", zap.Error(err))
	}
	if err := noteSqlite.InitSQLite(db); err != nil {
		log.Fatal("failed to initialize notes schema", zap.Error(err))
	}

	// --------- Repositorio canónico ---------
	var noteRepo noteDomain.NoteRepository
	switch cfg.NotesBackend {
	case "postgres":
		pg, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer pg.Close()
		noteRepo = notePostgres.NewNoteRepoPostgres(pg)
		log.Info("🗄️ Notas canónicas en Postgres")
	case "mongodb":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(ctx)
		noteRepo, err = noteMongo.NewNoteRepoMongoDB(ctx, client, "notelab")
		if err != nil {
			log.Fatal("failed to initialize MongoDB repo", zap.Error(err))
		}
		log.Info("🗄️ Notas canónicas en MongoDB")
	default:
		noteRepo = noteSqlite.NewNoteRepoSQLite(db)
		log.Info("🗄️ Notas canónicas en SQLite")
	}

	// ------------- KV y Cache --------------
	// Preferimos Redis como storage durable de colas y borradores; si no
	// responde, SQLite local; la variante en memoria queda para los tests.
	var kvStore sharedKV.Store
	var cacheInstance sharedCache.Cache

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, kv sobre SQLite y cache en memoria:", zap.Error(err))
		kvStore = sharedKV.NewSQLiteStore(db)
		cacheInstance = noteCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		kvStore = sharedKV.NewRedisStore(rdb)
		cacheInstance = noteCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, kv y cache habilitados")
	}

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		noteWriter := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopicNotes,
		})
		defer noteWriter.Close()

		eventPublisher = infraEvents.NewKafkaPublisher(noteWriter, log)

		// Consumidor de eventos de otras instancias: invalida la caché local
		// cuando una nota cambia en otro proceso.
		noteReader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopicNotes,
			GroupID: cfg.KafkaGroupID,
		})
		defer noteReader.Close()

		consumer := infraEvents.NewConsumerAdapter(noteReader, noteEvents.NewNoteConsumer(cacheInstance, log), log)
		consumer.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryBus := infraEvents.NewInMemoryEventBus(noteDomain.NoteTopic)
		eventPublisher = inMemoryBus

		// Suscriptor local: hace las veces de la capa de UI, que invalida
		// cachés y actualiza badges al recibir note.synced.
		eventsChan := inMemoryBus.Subscribe(10)
		go func() {
			for evt := range eventsChan {
				log.Debug("🎧 Evento de nota recibido", zap.Any("event", evt))
			}
		}()
	}

	// ------------- Core de sync ------------
	outboxStore := outbox.NewStore(kvStore, log)
	draftStore := draft.NewStore(kvStore, log)
	flusher := relayer.NewFlusher(outboxStore, log)
	syncer := syncApp.NewSyncer(flusher, syncApp.SyncerConfig{
		MaxAttempts: cfg.SyncMaxAttempts,
		BaseDelay:   cfg.SyncBaseDelay,
		Jitter:      cfg.SyncJitter,
		ItemsPerRun: cfg.FlushBatch,
	}, log)

	conn := connectivity.NewToggle(true)

	// --------------- Servicio --------------
	noteService := noteApp.NewNoteService(noteRepo, cacheInstance, eventPublisher, outboxStore, draftStore, syncer, conn, log)

	// Ping periódico: con conectividad, drena las colas de los usuarios que
	// encolaron mutaciones en este proceso.
	go func() {
		ticker := time.NewTicker(cfg.SyncPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !conn.Online(ctx) {
					continue
				}
				for _, uid := range outboxStore.Users() {
					if outboxStore.Count(ctx, uid) == 0 {
						continue
					}
					if _, err := noteService.Sync(ctx, uid); err != nil {
						log.Warn("⚠️ Sincronización periódica falló", zap.String("user_id", uid), zap.Error(err))
					}
				}
			}
		}
	}()

	// ---------------- HTTP ----------------
	noteHandler := noteHttp.NewNoteHandler(noteService)
	router := gin.Default()
	noteHttp.RegisterNoteRoutes(router, noteHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Simulación de offline: la señal de conectividad real la aporta el
	// entorno (evento online del navegador); aquí se conmuta a mano.
	router.PUT("/connectivity", func(c *gin.Context) {
		var req struct {
			Online bool `json:"online"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		conn.SetOnline(req.Online)
		c.JSON(200, gin.H{"online": req.Online})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server: %v", zap.Error(err))
	}
}
