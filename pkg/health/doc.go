// Package health provides HTTP handlers for liveness and readiness probes.
//
// [LivenessHandler] always answers OK while the process runs.
// [ReadinessHandler] runs a set of named [Checks] in parallel under one
// timeout and answers 503 when any of them fails.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "storage":  store.Ping,
//	    "postgres": db.Healthcheck(pool),
//	    "redis":    redis.Healthcheck(client),
//	    "jobs":     job.Healthcheck(manager),
//	}, health.WithLogger(log)))
//
// Responses are plain text ("OK" or "Service Unavailable") unless the client
// asks for JSON with Accept: application/json or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "storage":  {"status": "healthy", "duration": "1.2ms"},
//	    "postgres": {"status": "unhealthy", "error": "connection refused", "duration": "3ms"}
//	  }
//	}
//
// A check that outlives the timeout fails with [ErrCheckTimeout]; a check
// that panics fails with [ErrCheckFailed]. [Run] exposes the same aggregation
// without HTTP.
package health
