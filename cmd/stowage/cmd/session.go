package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stowage"
	"github.com/unkn0wn-root/stowage/filestore"
	asynchook "github.com/unkn0wn-root/stowage/hooks/async"
	"github.com/unkn0wn-root/stowage/hooks/prom"
	"github.com/unkn0wn-root/stowage/kv"
	"github.com/unkn0wn-root/stowage/kv/prefs"
	kvredis "github.com/unkn0wn-root/stowage/kv/redis"
	kvsqlite "github.com/unkn0wn-root/stowage/kv/sqlite"
	stowzap "github.com/unkn0wn-root/stowage/log/zap"
	"github.com/unkn0wn-root/stowage/memcache"
	"github.com/unkn0wn-root/stowage/memcache/bigcache"
	"github.com/unkn0wn-root/stowage/memcache/ristretto"
	"github.com/unkn0wn-root/stowage/paths"
	"github.com/unkn0wn-root/stowage/sloghooks"
)

// session is one CLI invocation's storage plus whatever must be flushed
// when it ends.
type session struct {
	stowage.Storage
	log    *zap.Logger
	onExit []func() error
}

func openSession() (_ *session, err error) {
	log, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return nil, err
	}
	sess := &session{log: log}

	// owned until stowage.New takes them over
	var pending []func() error
	defer func() {
		if err == nil {
			return
		}
		for _, fn := range pending {
			_ = fn()
		}
		for _, fn := range sess.onExit {
			_ = fn()
		}
		_ = log.Sync()
	}()

	opts := stowage.Options{
		Resolver: resolver(),
		Logger:   stowzap.ZapLogger{L: log},
	}

	var fsOpts []filestore.Option
	if lvl := viper.GetInt("compress"); lvl > 0 {
		fsOpts = append(fsOpts, filestore.WithCompression(lvl))
	}
	files, err := filestore.New(fsOpts...)
	if err != nil {
		return nil, err
	}
	opts.Files = files
	sess.onExit = append(sess.onExit, files.Close)

	if opts.KeyValue, err = keyValue(files); err != nil {
		return nil, err
	}
	kvStore := opts.KeyValue
	pending = append(pending, func() error { return kvStore.Close(context.Background()) })

	if opts.Cache, opts.DisableCache, err = memoryCache(); err != nil {
		return nil, err
	}
	if c := opts.Cache; c != nil {
		pending = append(pending, c.Close)
	}
	opts.Hooks, err = sess.hooks()
	if err != nil {
		return nil, err
	}

	s, err := stowage.New(opts)
	if err != nil {
		return nil, err
	}
	sess.Storage = s
	return sess, nil
}

func (x *session) Close(ctx context.Context) error {
	errs := []error{x.Storage.Close(ctx)}
	for _, fn := range x.onExit {
		errs = append(errs, fn())
	}
	_ = x.log.Sync()
	return errors.Join(errs...)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func resolver() paths.Resolver {
	if root := viper.GetString("root"); root != "" {
		return paths.Fixed(root)
	}
	return paths.Standard{App: "stowage"}
}

// kvBackends maps kv.backend names to constructors.
var kvBackends = map[string]func(files filestore.Backend) (kv.Backend, error){
	"prefs": func(files filestore.Backend) (kv.Backend, error) {
		format, err := prefs.ParseFormat(viper.GetString("kv.codec"))
		if err != nil {
			return nil, err
		}
		return prefs.Open(viper.GetString("kv.path"), prefs.Options{Format: format, Files: files})
	},
	"redis": func(filestore.Backend) (kv.Backend, error) {
		rdb := goredis.NewClient(&goredis.Options{Addr: viper.GetString("redis.addr")})
		return kvredis.New(kvredis.Config{
			Client:      rdb,
			Prefix:      viper.GetString("redis.prefix"),
			CloseClient: true,
		})
	},
	"sqlite": func(filestore.Backend) (kv.Backend, error) {
		return kvsqlite.Open(viper.GetString("sqlite.path"))
	},
	"memory": func(filestore.Backend) (kv.Backend, error) {
		return kv.NewMemory(), nil
	},
}

func keyValue(files filestore.Backend) (kv.Backend, error) {
	backend := viper.GetString("kv.backend")
	open, ok := kvBackends[backend]
	if !ok {
		return nil, fmt.Errorf("unknown kv backend %q", backend)
	}
	return open(files)
}

func memoryCache() (memcache.Cache, bool, error) {
	maxBytes := int64(viper.GetInt("cache_max_mb")) << 20
	switch kind := viper.GetString("cache"); kind {
	case "map", "":
		return nil, false, nil
	case "none":
		return nil, true, nil
	case "ristretto":
		c, err := ristretto.New(ristretto.Config{NumCounters: 10_000, MaxCost: maxBytes, BufferItems: 64})
		return c, false, err
	case "bigcache":
		c, err := bigcache.New(bigcache.Config{HardMaxCacheSizeMB: viper.GetInt("cache_max_mb")})
		return c, false, err
	default:
		return nil, false, fmt.Errorf("unknown cache %q", kind)
	}
}

// hooks wires event logging (verbose) and a prometheus textfile (metrics_file).
func (x *session) hooks() (stowage.Hooks, error) {
	var hs multiHooks

	if viper.GetBool("verbose") {
		l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		async := asynchook.New(sloghooks.New(l, sloghooks.Options{}), 1, 256)
		hs = append(hs, async)
		x.onExit = append(x.onExit, func() error { async.Close(); return nil })
	}

	if file := viper.GetString("metrics_file"); file != "" {
		reg := prometheus.NewRegistry()
		ph, err := prom.New(reg, "stowage")
		if err != nil {
			return nil, err
		}
		hs = append(hs, ph)
		x.onExit = append(x.onExit, func() error { return prometheus.WriteToTextfile(file, reg) })
	}

	if len(hs) == 0 {
		return nil, nil
	}
	return hs, nil
}

type multiHooks []stowage.Hooks

func (m multiHooks) CacheHit(ns, key string) {
	for _, h := range m {
		h.CacheHit(ns, key)
	}
}

func (m multiHooks) CacheMiss(ns, key string) {
	for _, h := range m {
		h.CacheMiss(ns, key)
	}
}

func (m multiHooks) CacheAdmitSkipped(ns, key string, size int, reason string) {
	for _, h := range m {
		h.CacheAdmitSkipped(ns, key, size, reason)
	}
}

func (m multiHooks) BackendError(op, ns, key string, err error) {
	for _, h := range m {
		h.BackendError(op, ns, key, err)
	}
}

func currentTarget() (stowage.Target, error) {
	return stowage.ParseTarget(viper.GetString("target"))
}

func closeSession(ctx context.Context, sess *session, err *error) {
	if cerr := sess.Close(ctx); cerr != nil && *err == nil {
		*err = cerr
	}
}
