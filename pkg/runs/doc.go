/*
Package runs coordinates access to stored workflow runs.

A Manager serializes operations on the same run ID inside one process and,
when given a DistributedLocker, across replicas sharing a checkpoint store.
It also builds the summaries shown by listing commands and endpoints.
*/
package runs
