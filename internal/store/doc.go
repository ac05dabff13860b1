// Package store manages recast's SQLite persistence: video sources,
// processing jobs, transcripts, content assets, usage records, and the
// minimal user projection the quota guard reads. Writes that the pipeline
// depends on for consistency (submission, transcript replacement, asset
// delete-then-recreate) are transactional.
package store
