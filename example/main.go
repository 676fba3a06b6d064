// FILE: lixenwraith/nodeconf/example/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lixenwraith/nodeconf"
)

// pluginID identifies a consumer of the shared settings registry
type pluginID string

// ChatSettings is what the chat plugin reads from its file
type ChatSettings struct {
	Format struct {
		Prefix string `toml:"prefix"`
		Colors bool   `toml:"colors"`
	} `toml:"format"`

	Cooldown time.Duration `toml:"cooldown"`
	MaxLen   int           `toml:"max length"`
}

const chatTemplate = `# chat plugin settings
version: 1

format:
	prefix: [chat]
	colors: yes

# seconds between two messages of one player
cooldown: 2s
max length: 256
`

func main() {
	registry, err := nodeconf.NewRegistry[pluginID]("plugins")
	if err != nil {
		log.Fatal("Failed to open registry:", err)
	}

	// Create or upgrade the chat settings from the template before sharing them
	chatFile, err := registry.Normalize("chat/settings")
	if err != nil {
		log.Fatal(err)
	}
	var settings ChatSettings
	if _, err := nodeconf.NewBuilder().
		WithFile(chatFile).
		WithTemplate(chatTemplate).
		WithExcluded("version").
		WithEnvPrefix("CHAT_").
		BuildAndScan(&settings); err != nil {
		log.Fatal("Failed to build chat settings:", err)
	}

	registry.Register("chat", "chat/settings")
	registry.Register("moderation", "chat/settings") // same tree, parsed once

	watcher, err := registry.Watch(nodeconf.WatchOptions{
		Debounce:          200 * time.Millisecond,
		MaxWatchers:       10,
		ReloadTimeout:     2 * time.Second,
		VerifyPermissions: true,
	})
	if err != nil {
		log.Fatal("Failed to watch registry:", err)
	}
	defer registry.StopWatching()

	changes := watcher.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logSettings(registry)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				handleChange(registry, change)
			}
		}
	}()

	log.Printf("Watching %s. Edit it to see updates, Ctrl+C to exit.", chatFile)
	<-sigCh
	log.Println("Shutting down...")
}

func handleChange(registry *nodeconf.Registry[pluginID], change nodeconf.Change) {
	switch change.Event {
	case nodeconf.EventFileDeleted:
		log.Println("Settings file was deleted")
	case nodeconf.EventPermissionsChanged:
		log.Println("SECURITY: settings file permissions changed, not reloaded")
	case nodeconf.EventReloadError:
		log.Printf("Failed to reload settings: %v", change.Err)
	case nodeconf.EventReloadTimeout:
		log.Println("Settings reload timed out")
	default:
		cfg := registry.Config("chat", "chat/settings")
		value, _ := cfg.Value(change.Path)
		log.Printf("Setting changed: %s = %q", change.Path, value)

		if change.Path == "format.colors" {
			if on, _ := cfg.Bool("format.colors"); on {
				log.Println("Colored chat enabled")
			} else {
				log.Println("Colored chat disabled")
			}
		}
	}
}

func logSettings(registry *nodeconf.Registry[pluginID]) {
	var s ChatSettings
	if err := registry.Config("moderation", "chat/settings").Scan("", &s); err != nil {
		log.Printf("Cannot read settings: %v", err)
		return
	}
	log.Println("Current chat settings:")
	log.Printf("  Prefix: %s (colors=%v)", s.Format.Prefix, s.Format.Colors)
	log.Printf("  Cooldown: %s, max length: %d", s.Cooldown, s.MaxLen)
}
