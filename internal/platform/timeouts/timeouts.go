// Package timeouts defines shared timeout constants used by the service.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// BackgroundDrain limits how long shutdown waits for worker background work
// (writes issued after a response was already sent).
const BackgroundDrain = 10 * time.Second

// ChannelReply caps the wait for a reply on a cross-context message channel.
const ChannelReply = 5 * time.Second

// Install caps the static asset pre-fetch performed at worker install.
const Install = 30 * time.Second
