package config

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReloadFunc is called after a configuration reload succeeds.
// changed lists the top-level sections that differ between old and new.
type ReloadFunc func(old, new *Config, changed []string)

var (
	// current holds the last committed configuration.
	current atomic.Pointer[Config]

	subscribersMu sync.RWMutex
	subscribers   []ReloadFunc
)

// ReloadableSections lists the config sections that take effect without a restart.
// Changes to other sections require restarting the service.
var ReloadableSections = []string{"log_level", "export", "client"}

// OnReload registers fn to run after every successful reload.
func OnReload(fn ReloadFunc) {
	subscribersMu.Lock()
	defer subscribersMu.Unlock()
	subscribers = append(subscribers, fn)
}

func resetSubscribers() {
	subscribersMu.Lock()
	defer subscribersMu.Unlock()
	subscribers = nil
}

// commit validates the global viper state and, when valid, makes it the
// current configuration and notifies subscribers.
func commit() error {
	next, err := Get()
	if err != nil {
		return err
	}

	prev := current.Swap(next)
	if prev == nil {
		return nil
	}

	changed := detectChangedSections(prev, next)
	if len(changed) == 0 {
		return nil
	}

	if !isReloadable(changed) {
		slog.Warn("config reload includes non-reloadable sections; some changes require a restart",
			"changed_sections", changed)
	}

	subscribersMu.RLock()
	fns := append([]ReloadFunc(nil), subscribers...)
	subscribersMu.RUnlock()

	for _, fn := range fns {
		fn(prev, next, changed)
	}
	return nil
}

// Watch reloads the configuration whenever the loaded config file changes on disk.
// It is a no-op when no config file was found.
func Watch() {
	if configFilePath == "" {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !reloadMu.TryLock() {
			slog.Debug("config change during reload; ignoring", "file", e.Name)
			return
		}
		defer reloadMu.Unlock()

		slog.Info("config file changed", "file", e.Name, "op", e.Op.String())
		if err := commit(); err != nil {
			slog.Error("changed config is invalid; retaining previous values", "error", err)
		}
	})
	viper.WatchConfig()
}

// detectChangedSections compares old and new configs and returns a list of changed sections.
func detectChangedSections(old, new *Config) []string {
	var changed []string

	if old.LogLevel != new.LogLevel {
		changed = append(changed, "log_level")
	}
	if old.LogFile != new.LogFile || old.LogMaxSizeMB != new.LogMaxSizeMB ||
		old.LogMaxBackups != new.LogMaxBackups || old.LogMaxAgeDays != new.LogMaxAgeDays {
		changed = append(changed, "log_file")
	}
	if !reflect.DeepEqual(old.Server, new.Server) {
		changed = append(changed, "server")
	}
	if !reflect.DeepEqual(old.Store, new.Store) {
		changed = append(changed, "store")
	}
	if !reflect.DeepEqual(old.Export, new.Export) {
		changed = append(changed, "export")
	}
	if !reflect.DeepEqual(old.Client, new.Client) {
		changed = append(changed, "client")
	}

	return changed
}

// isReloadable checks if all changed sections are hot-reloadable.
func isReloadable(changedSections []string) bool {
	reloadableSet := make(map[string]bool)
	for _, s := range ReloadableSections {
		reloadableSet[s] = true
	}

	for _, section := range changedSections {
		if !reloadableSet[section] {
			return false
		}
	}

	return true
}
