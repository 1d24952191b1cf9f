// Package harness runs end-to-end sync scenarios against a fake vendor API.
//
// A scenario is a YAML file naming the tracked codes, the records the remote
// side holds, and a sequence of stage runs with optional failure injection.
// The harness drives a real Pipeline over a file backend and records a
// trace: every stage outcome, every request the fake API answered, and the
// derived state of each key at the end.
//
// # Scenario Format
//
//	name: push_failure_resume
//	description: "A failed push aborts the run and a re-run resumes"
//	keys: [A, B, C, D, E, F]
//	remote:
//	  - code: A
//	    financial_sys_code: "111"
//	steps:
//	  - stage: seed
//	  - stage: push
//	    fail_put: { C: 500 }
//	    expect: { error: remote }
//	  - stage: push
//	    clear_failures: true
//	    expect: { processed: 4, skipped: 2 }
//	assertions:
//	  - type: marker_count
//	    stage: push
//	    count: 6
//
// Codes listed in keys but absent from remote answer GET with 404.
//
// # Assertion Types
//
//   - marker_count: exactly count keys carry the marker for stage
//   - key_stage: key's highest completed stage is stage
//   - remote_field: the remote record of key has field equal to value
//   - request_count: the fake API answered count requests with method
//
// # Golden Traces
//
// RunWithGolden compares the trace against testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
//
// Every scenario runs with a DeterministicClock and a fresh output directory,
// so the same scenario always yields the same trace.
package harness
