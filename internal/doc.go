// Package internal contains the implementation packages of the devlog site.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - config: Configuration loading and validation with viper
//   - content: Content model, loader and the snapshot Store
//   - devlog: Devlog filtering, sorting and grouping by version
//   - journey: Journey log filtering and facet counts
//   - search: Ranked full-text search over content entries
//   - sections: Viewport based active section tracking
//   - errors: Typed errors and their HTTP mapping
//   - logging: Structured logging on slog
//   - validation: Origin, URL and query input validation
//   - middleware: HTTP middleware chain
//   - views: HTML page components
//   - websocket: Live update hub
//   - watcher: Debounced content file watching
//   - server: HTTP routes wiring the above together
//   - version: Build version reporting
//
// # Inter-Package Communication
//
//   - The Store publishes reload events to watchers
//   - The websocket Hub follows the Store and fans events out to pages
//   - The file watcher triggers Store reloads on content changes
//   - Server handlers read one Store snapshot per request
package internal
