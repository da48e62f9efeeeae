// Package notify provides driven.Notifier implementations for anomaly
// events: a structured log line, an HTTP webhook, a Redis pub/sub channel,
// and a fan-out that delivers to several of them.
package notify
