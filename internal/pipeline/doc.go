// Package pipeline turns an audio URL into a published article.
//
// Manager.Submit charges the daily quota, registers a task and hands the job
// to a fixed worker pool. Each job then runs four stages in order on a single
// worker: acquisition, transcription, generation and publishing. Progress is
// written to the task registry before and after every stage; the generated
// article is stored before publishing starts so a publish failure never loses
// it.
//
// Stage failures are recorded as *StageError values tagged with a Kind and
// stop only the job that produced them.
package pipeline
