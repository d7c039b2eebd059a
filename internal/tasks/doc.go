// Package tasks holds the in-memory registry of pipeline runs.
//
// A Registry is constructed once per process and shared by the pipeline
// manager (writer) and the API handlers (readers). Every read returns a deep
// copy so pollers never observe a partially written record.
package tasks
