// Package notifications delivers run lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Individual event kinds can be toggled off in configuration; the
// pipeline depends only on the Service interface.
package notifications
