// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set. Events
// cover batch start/end, per-episode completion and failure, review routing,
// and errors; per-event toggles and a dedup window keep noisy queues from
// flooding a phone.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the Publish method.
package notifications
