// Package scheduler runs fetch-and-persist cycles.
//
// A Runner works in one of two modes. ModeOnce runs a single cycle and
// reports whether the snapshot was written. ModeForever runs a cycle, sleeps
// (five minutes by default, measured from the end of the cycle) and repeats
// until the context is cancelled or an interrupt arrives during the sleep.
// With a cron expression configured, the sleep lasts until the next
// scheduled start instead.
//
// Every cycle gets a random UUID that tags its log lines, the optional
// metadata sidecar and the optional history row.
package scheduler
