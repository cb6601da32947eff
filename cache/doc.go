// Package cache provides cache-aside middleware for request/response
// dispatch pipelines.
//
// A Middleware sits in front of a handler: it derives a key from the
// request, serves a live cached response when one exists, and otherwise
// runs the handler and stores its result for the resolved TTL.
//
// TTLs are resolved per call site by merging three layers, lowest to
// highest priority: built-in defaults (no expiration), a named global
// profile (falling back to "Default"), and the call site's own settings.
// Backends implement Provider; MemoryStore is the built-in in-memory
// implementation and TTLStore is backed by ttlcache.
//
// Typical wiring happens once at process start:
//
//	mgr, err := cache.NewManager(cache.Options{}.
//	    WithDefaultProfile(time.Minute).
//	    WithProfile("fast", 50*time.Millisecond))
//	if err != nil {
//	    return err
//	}
//
//	mw, err := cache.Register[GetUser, User](mgr, cache.CallSite{
//	    Handler: "users.get",
//	    Profile: "fast",
//	})
//	if err != nil {
//	    return err
//	}
//
//	handle := mw.Wrap(getUser)
//	user, err := handle(ctx, GetUser{ID: 42})
package cache
