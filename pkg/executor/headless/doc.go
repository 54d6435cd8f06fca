// Package headless runs a single browser goal without the HTTP server.
//
// The headless executor is meant for scripts, cron jobs and CI pipelines.
// It submits one goal to a task manager, prints step progress to the
// console and writes artifacts once the run is terminal.
//
//	┌─────────────────────────────────────┐
//	│          Headless Executor          │
//	│  - Console progress                 │
//	│  - Artifact Generation              │
//	└──────────────────┬──────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐
//	        │    tasks.Manager     │
//	        │  (single session)    │
//	        └──────────────────────┘
//
// Example usage:
//
//	config := headless.DefaultConfig()
//	config.Goal = "Open example.com and report the page heading"
//
//	executor, _ := headless.NewExecutor(manager, config)
//	if _, err := executor.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Artifacts:
//
// The artifact writer generates execution reports:
// - execution.json: Full execution summary including every step
// - summary.md: Human-readable markdown summary
// - metrics.json: Step and page counts
package headless
