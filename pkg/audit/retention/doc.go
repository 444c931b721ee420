// Package retention enforces audit record retention: age-based and
// count-based pruning, optional JSON archiving before deletion, and a
// cron-driven scheduler for unattended operation.
package retention
