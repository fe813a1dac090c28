package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/coursebrain/coursebrain/app/core/srv"
	"github.com/coursebrain/coursebrain/app/store/sqlstore"
	"github.com/coursebrain/coursebrain/pkg/extract"
	"github.com/coursebrain/coursebrain/pkg/filestore"
	"github.com/coursebrain/coursebrain/pkg/source"
	"github.com/coursebrain/coursebrain/pkg/types"
	"github.com/coursebrain/coursebrain/pkg/utils"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	redis      redis.UniversalClient
	httpEngine *gin.Engine

	files      filestore.Store
	sources    *source.Registry
	extractor  *extract.Coordinator
	metrics    *Metrics
	semaphores *SemaphoreManager
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("coursebrain", "pipeline"),
		httpEngine: gin.New(),
	}

	setupSqlStore(core)
	setupRedis(core)
	core.files = setupFileStorage(cfg.FileStorage)
	core.extractor = setupExtractor(cfg)
	core.sources = source.NewRegistry(
		source.NewManualAdapter(),
		source.NewFileAdapter(core.files),
		source.NewURLAdapter(core.files),
		source.NewYouTubeAdapter(cfg.Sources.YouTubeLang),
		source.NewGitHubAdapter(cfg.Sources.GitHubToken),
	)
	core.semaphores = NewSemaphoreManager(core)

	core.srv = srv.SetupSrvs(srv.ApplyAI(cfg.AI))

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	slog.Info("sql store ready")
}

func setupRedis(core *Core) {
	cfg := core.cfg.Redis
	if cfg.Cluster {
		core.redis = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.ClusterPasswd,
		})
		return
	}
	core.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func setupFileStorage(cfg FileStorageDriver) filestore.Store {
	switch cfg.Driver {
	case "s3":
		if cfg.S3 == nil {
			panic("file_storage.s3 config missing")
		}
		return filestore.NewS3Store(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.AccessKey, cfg.S3.SecretKey)
	default:
		root := cfg.LocalRoot
		if root == "" {
			root = os.TempDir()
		}
		return filestore.NewLocalStore(root)
	}
}

func setupExtractor(cfg CoreConfig) *extract.Coordinator {
	coordinator := extract.NewCoordinator(cfg.Pipeline.ExtractionTimeout(), cfg.Pipeline.ConfidenceThreshold)

	coordinator.RegisterEngine(types.EXTRACTION_METHOD_PLAINTEXT, extract.NewPlainTextEngine())
	coordinator.RegisterEngine(types.EXTRACTION_METHOD_MARKDOWN, extract.NewMarkdownEngine())
	coordinator.RegisterEngine(types.EXTRACTION_METHOD_HTML, extract.NewHTMLEngine())

	// heavy formats go through remote engines when configured
	for _, method := range []types.ExtractionMethod{
		types.EXTRACTION_METHOD_PDF,
		types.EXTRACTION_METHOD_OCR,
		types.EXTRACTION_METHOD_SPEECH,
	} {
		if engineCfg, ok := cfg.Sources.Extractors[method.String()]; ok {
			coordinator.RegisterEngine(method, extract.NewRemoteEngine(method.String(), engineCfg))
		}
	}

	return coordinator
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

func (s *Core) FileStorage() filestore.Store {
	return s.files
}

func (s *Core) Sources() *source.Registry {
	return s.sources
}

func (s *Core) Extractor() *extract.Coordinator {
	return s.extractor
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Semaphores() *SemaphoreManager {
	return s.semaphores
}

// LockTTL must outlive the longest pipeline run, so a lock never
// expires under a worker that is still processing its item.
const LockTTL = time.Minute * 20

var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// TryLock takes a lock keyed by content id so two workers never process
// the same item concurrently. The returned token identifies this
// holder; an empty token means someone else holds the lock.
func (s *Core) TryLock(ctx context.Context, key string) (string, error) {
	token := utils.GenRandomID()
	ok, err := s.redis.SetNX(ctx, s.cfg.Redis.KeyPrefix+"lock:"+key, token, LockTTL).Result()
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}

// Unlock releases the lock only while token still owns it. A holder
// whose lock already expired must not delete a lock taken since.
func (s *Core) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, s.redis, []string{s.cfg.Redis.KeyPrefix + "lock:" + key}, token).Err()
}
