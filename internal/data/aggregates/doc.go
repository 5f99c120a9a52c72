// Package aggregates implements the workshop aggregate contracts on top of the
// table repos in internal/data/repos.
//
// Every write runs inside one transaction owned by the aggregate. Concurrent
// writers are reconciled with status and version compare-and-set guards rather
// than row locks, so the same code runs on Postgres and SQLite.
package aggregates
