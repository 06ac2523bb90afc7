// Package pipeline runs the per-business stages of a crawl run.
//
// Each business record passes through an ordered list of steps: the
// history check that may mark it skipped, the crawl that attaches its
// emails, the history update and the run persistence. BatchProcessor
// runs one pipeline per record with bounded concurrency and keeps the
// results in source order.
package pipeline
