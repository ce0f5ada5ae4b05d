// Package main hosts the rank tracker service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, keyword CRUD, a manual
//     update trigger, a SERP debug preview, and a provider connectivity ping.
//     Reads go straight to the pgx pool;
//     the heavy lifting lives in the stores and the SERP client.
//   - Update cycle: internal/tracker.Cycle lists tracked keywords, fans their SERP
//     lookups out through the bounded batch fetcher, and persists the day's
//     snapshots plus 7/30-day deltas on a single transaction. Provider failures are
//     isolated per keyword; store failures roll the whole cycle back.
//   - SERP client: internal/serp.Client calls the DataForSEO live organic endpoint
//     with basic auth, normalizes the raw result items, and resolves the best
//     ranked result for the target domain (exact host, then subdomain, then an
//     optional loose containment tier).
//   - Persistence & fanout: Postgres via pgx/v5 with embedded golang-migrate
//     migrations. Raw provider payloads are optionally archived to a BlobStore
//     (memory/local/GCS), and a cycle summary event is published via Pub/Sub when
//     a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides
//     structured logging; Prometheus metrics are exported via the metrics
//     middleware and the /metrics handler.
//
// Operational notes:
//   - Scheduling: a plain timer loop fires the cycle daily at the configured UTC
//     hour/minute; a compare-and-swap guard skips a tick while a manually
//     triggered cycle is still running.
//   - Shutdown: SIGTERM/SIGINT cancel the root context, stopping the scheduler and
//     draining the HTTP server with a 10s grace period.
//
// Quick checklist:
//   - Configure env vars: RANKTRAKR_DB_DSN, RANKTRAKR_PROVIDER_LOGIN,
//     RANKTRAKR_PROVIDER_PASSWORD, plus archive (RANKTRAKR_ARCHIVE_*) and events
//     (RANKTRAKR_EVENTS_*) settings when those providers are enabled.
//   - Run locally: go run ./cmd/ranktrakr -config config.yaml (or rely solely on
//     env overrides).
package main
