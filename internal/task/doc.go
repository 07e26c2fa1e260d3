// Package task queues and runs background extraction jobs.
//
// A job is persisted before it is published, so a restart never loses work:
// on start the runner republishes pending jobs and resets jobs that were
// left processing. Queues carry only job IDs; the job itself is loaded from
// the store when a worker picks it up. Two queue backends exist, an
// in-process channel and RabbitMQ.
package task
