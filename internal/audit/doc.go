// Package audit relays security events to a caller-supplied sink without
// blocking the request path.
//
// # Components
//
//   - [Event]: one outcome with user, session, client and metadata.
//   - [Sink]: consumer interface; channel, JSON lines, logrus and no-op sinks ship here.
//   - [Dispatcher]: buffered relay that either drops or waits when full.
//
// The package never decides which events exist. The engine and the flows do.
// It must not import the root package or other internal packages.
package audit
