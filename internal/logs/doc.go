// Package logs reads the daemon log file for the CLI and the /api/logs
// endpoint. Tail supports "last N lines" via negative offsets, offset-based
// resumption for follow mode, and bounded memory on large files.
package logs
