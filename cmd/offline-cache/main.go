package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	offlinecache "github.com/offline-cache/offline-cache"
	"github.com/offline-cache/offline-cache/store"
	"github.com/offline-cache/offline-cache/store/bigcachestore"
	"github.com/offline-cache/offline-cache/store/redisstore"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	originFlag         string
	hostFlag           string
	generationFlag     string
	providerFlag       string
	dbFilenameFlag     string
	redisAddrFlag      string
	deferFlag          bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to front (overrides config)")
	flag.StringVar(&hostFlag, "host", "", "Hostname of origin")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&generationFlag, "generation", "", "Cache generation tag (overrides config)")
	flag.StringVar(&providerFlag, "provider", "", "Store backend: memory, sqlite, bigcache or redis")
	flag.StringVar(&dbFilenameFlag, "db", "cache.db", "Cache DB file name for the sqlite backend (use 'memory' for an in-memory db)")
	flag.StringVar(&redisAddrFlag, "redis-addr", "localhost:6379", "Redis address for the redis backend")
	flag.BoolVar(&deferFlag, "defer-activation", false, "Do not take over after install; wait for a skip-waiting message")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Rotating log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to a rotating logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		logOutputs = append(logOutputs, &lumberjack.Logger{
			Filename:   logFilenameFlag,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		})
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config := offlinecache.FileConfig{
		Port:       8080,
		Generation: "offline-cache-v1",
		Provider:   offlinecache.ProviderConfig{Type: "sqlite"},
	}
	if configFilenameFlag != "" {
		var err error
		config, err = offlinecache.LoadConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot read config file")
		}
	}

	// flags override the config file
	if originFlag != "" {
		config.Origin = originFlag
	}
	if hostFlag != "" {
		config.OriginHost = hostFlag
	}
	if generationFlag != "" {
		config.Generation = generationFlag
	}
	if providerFlag != "" {
		config.Provider.Type = providerFlag
	}
	if portFlag != 8080 || config.Port == 0 {
		config.Port = portFlag
	}
	if deferFlag {
		config.DeferActivation = true
	}

	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}
	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	engine := offlinecache.New(offlinecache.Config{
		Store:             newProvider(config.Provider),
		OriginURL:         *originURL,
		OriginHost:        config.OriginHost,
		Generation:        config.Generation,
		Precache:          config.Precache,
		NetworkFirstHosts: config.NetworkFirstHosts,
		DeferActivation:   config.DeferActivation,
		Logger:            &log.Logger,
	})

	if err := engine.Install(context.Background()); err != nil {
		// a failed install is reported, not fatal: the agent keeps serving
		// pass-through and the next start may precache successfully
		log.Error().Err(err).Msg("Install failed, serving without offline cache")
	}

	r := chi.NewRouter()
	r.Post("/-/message", func(w http.ResponseWriter, req *http.Request) {
		var msg offlinecache.Message
		if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid message", http.StatusBadRequest)
			return
		}
		engine.HandleMessage(req.Context(), msg)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/-/healthz", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, "ok")
	})
	r.Handle("/*", engine)

	log.Info().Msgf("Serving offline cache for %s on port %d (generation '%s')",
		config.Origin, config.Port, config.Generation)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newProvider builds the configured store backend, panicking via Fatal on an
// unsupported type so misconfiguration is caught at startup.
func newProvider(config offlinecache.ProviderConfig) store.Provider {
	switch config.Type {
	case "memory":
		return store.NewMemory()
	case "sqlite":
		dbFilename := config.File
		if dbFilename == "" {
			dbFilename = dbFilenameFlag
		}
		if dbFilename == "memory" {
			dbFilename = ""
		}
		s, err := store.NewSQLite(dbFilename)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot open sqlite store")
		}
		return s
	case "bigcache":
		return bigcachestore.New(bigcachestore.Config{})
	case "redis":
		addr := config.RedisAddr
		if addr == "" {
			addr = redisAddrFlag
		}
		client := goredis.NewClient(&goredis.Options{Addr: addr})
		s, err := redisstore.New(redisstore.Config{Client: client, CloseClient: true})
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot create redis store")
		}
		return s
	default:
		log.Fatal().Msgf("Unsupported store provider: %s", config.Type)
		return nil
	}
}
