// File: lixenwraith/nodeconf/doc.go

// Package nodeconf parses and edits indentation-nested configuration and
// script sources, and shares parsed files between consumers.
//
// A source file is a tree of sections, entries, bare tokens and comment or
// blank lines. Nesting follows indentation: a line ending with the section
// delimiter opens a section whose body is indented one unit deeper. The
// tree keeps enough of the original text that an unmodified file is written
// back byte for byte.
//
//	database:
//		host: localhost
//		port: 5432   # default
//	greeting:
//		broadcast "hi"
//
// Features:
//   - Lossless round trip of comments, blank lines and separator spacing
//   - Escaped comment markers (##) and block comments (###)
//   - Case-insensitive key lookup with ordered, duplicate-tolerant sections
//   - Non-fatal diagnostics with file and line through a Reporter
//   - Tree diff and merge (Compare, SetValues) with exclusions
//   - Typed accessors, struct scanning and JSON/YAML/TOML export
//   - A Builder that creates, upgrades and overrides settings files
//   - A Registry sharing parsed files between consumers, confined to a
//     managed directory, with optional auto reload
//
// Quick Start:
//
//	cfg, err := nodeconf.LoadFile("plugin.sk")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	port, _ := cfg.Int64("database.port")
//	_ = cfg.Set("database.host", "db.internal")
//	_ = cfg.SaveFile()
//
// Shared files:
//
//	reg, _ := nodeconf.NewRegistry[string]("plugins/settings")
//	if reg.Register("my-plugin", "my-plugin/config") {
//	    cfg := reg.Config("my-plugin", "my-plugin/config")
//	    _ = cfg
//	}
//	reg.Release("my-plugin")
//
// Thread Safety:
// A Config is not safe for concurrent mutation. SharedConfig and Registry
// are safe for concurrent use; readers of a SharedConfig observe either the
// tree before a reload or the one after it.
package nodeconf
