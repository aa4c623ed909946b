// Package store persists inspection runs and reports.
//
// Two backends implement Store:
//
//   - RedisStore keeps JSON documents in Redis with an optional retention TTL
//   - SQLiteStore keeps rows in a local SQLite database (pure Go driver, no cgo)
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create store
//	s := store.NewRedisStore(redisClient, logger, 30*24*time.Hour)
//
//	// Save a run and start a report with it
//	if err := s.SaveRun(ctx, r); err != nil {
//		return err
//	}
//	report := run.NewReport(time.Now())
//	report.RunIDs = append(report.RunIDs, r.RunID)
//	if err := s.CreateReport(ctx, report); err != nil {
//		return err
//	}
//
//	// Later
//	got, err := s.GetRun(ctx, r.RunID)
//	if errors.Is(err, store.ErrNotFound) {
//		// unknown or expired
//	}
//
// # Key Layout (Redis)
//
//	inspector:run:<runId>              run JSON
//	inspector:report:<reportId>        report JSON (without run ids)
//	inspector:report:<reportId>:runs   list of run ids, in insertion order
//
// # Metrics
//
//   - inspector_store_operations_total{backend,operation} - Store operations
//   - inspector_store_errors_total{backend,operation} - Failed store operations
//   - inspector_store_misses_total{backend} - Lookups of unknown ids
package store
