// Package schedule provides utilities for cron expression handling and deferred execution.
//
// Cron functions parse and validate cron expressions and compute upcoming
// recording times. RunAt executes a function asynchronously at a specified
// time unless its context ends first.
package schedule
