// Package monitor keeps the execution history of pipeline runs.
//
// A Monitor holds a bounded in-memory history, persists each ExecutionRecord
// through a Backend (memory, local files, SQLite or PostgreSQL) and can
// optionally publish records to NATS. Summaries, reports and a health
// signal are derived from the in-memory history.
package monitor
