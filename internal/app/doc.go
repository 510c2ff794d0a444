// Package app composes the application registry: the record store, its
// storage backend and the background services that run beside it.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/application/ # Record, criteria, patch and structural checks
//	├── services/           # Record store operations
//	├── storage/            # CollectionStore and its backends
//	│   ├── jsonfile/       # Single JSON document on disk (default)
//	│   ├── memory/         # In-memory document for tests
//	│   ├── postgres/       # JSONB row per document
//	│   ├── redis/          # One key per document
//	│   └── factory/        # Backend selection from config
//	├── httpapi/            # Backend REST handlers and OpenAPI document
//	├── gateway/            # Read-only proxy in front of the backend
//	├── audit/              # Scheduled structural audit
//	├── runtime/            # HTTP servers and process wiring
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/appregistry, cmd/appgateway, cmd/appctl
//	      │
//	      ▼
//	internal/app/runtime, internal/cli
//	      │
//	      ▼
//	internal/app (composition)
//	      │
//	      ├──► services/applications ──► storage ──► domain/application
//	      │
//	      └──► audit ──► services/applications
package app
