package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "CONTEXTDIFF"

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// newViper builds a pre-configured Viper instance: YAML file type,
// CONTEXTDIFF_ env prefix, a key replacer that maps "." → "_" so that
// "oracle.api_key" resolves to CONTEXTDIFF_ORACLE_API_KEY, and every
// Config key bound so env-only deployments see all of them.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults whose zero value is meaningful and so cannot be filled in by
	// ApplyDefaults.
	v.SetDefault("engine.temperature", 0.1)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("postgres.auto_migrate", true)

	bindEnvs(v, "", reflect.TypeOf(Config{}))
	return v
}

// bindEnvs registers every mapstructure key under t with viper.
func bindEnvs(v *viper.Viper, prefix string, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if opts == "squash" {
			bindEnvs(v, prefix, f.Type)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			bindEnvs(v, key, f.Type)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges any CONTEXTDIFF_*
// environment overrides, applies defaults for unset fields, and validates
// the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CONTEXTDIFF_* environment
// variables, with no config file required.
//
//	CONTEXTDIFF_<SECTION>_<FIELD>   e.g.  CONTEXTDIFF_ORACLE_API_KEY
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOptional loads configPath when it is set and falls back to the
// environment otherwise.
func LoadOptional(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// after every write. A file that fails to parse or validate is logged and
// skipped so that the running configuration stays in effect. Callers apply
// only the settings that are safe to change at runtime.
//
// The parent directory is watched rather than the file so that atomic
// replace-by-rename saves are seen.
func Watch(configPath string, onChange func(*Config), log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config: failed to watch %q: %w", configPath, err)
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	w.wg.Add(1)
	go w.loop(abs, onChange, log)
	return w, nil
}

func (w *Watcher) loop(path string, onChange func(*Config), log logging.Logger) {
	defer w.wg.Done()

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C
		case <-reload:
			reload = nil
			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload rejected", logging.String("path", path), logging.Err(err))
				continue
			}
			log.Info("config reloaded", logging.String("path", path))
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", logging.Err(err))
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
