// Package health checks cache providers.
//
// A ProviderChecker runs a store/read/remove round trip against one
// Provider under a key unique to that check. An Aggregator runs a set of
// checkers concurrently under a shared timeout and folds their results into one
// Status.
//
//	agg := health.ForRegistry(mgr.Registry())
//	results := agg.CheckAll(ctx)
//	if agg.OverallStatus(results) == health.StatusUnhealthy {
//	    // stop routing traffic to this instance
//	}
package health
