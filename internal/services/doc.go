// Package services holds cross-cutting helpers shared by the external
// service clients and pipeline stages: the error taxonomy used for retry
// and terminal-status decisions, and context annotations for correlating
// log lines with videos, jobs, and stages.
package services
