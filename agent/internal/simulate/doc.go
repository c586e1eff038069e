// Package simulate generates synthetic payment transactions for the PSPs
// listed in the agent configuration.
//
// Each PSP follows a traffic profile that fixes its status mix and
// response-time ranges:
//
//	healthy  ~1.5% timeout, ~1% error, 1-5s responses
//	timeout  ~22% timeout (25-35s), ~5% error
//	slow     ~5% timeout, approved responses of 15-25s
//
// Generator.Tick produces one interval of live traffic. Generator.Backfill
// produces a recent window of profile traffic plus an older, healthy
// baseline window so the server's trend endpoints have something to compare.
//
// Generators are seeded, so the same seed and clock yield the same output.
package simulate
