package runner

import (
	"github.com/trellisdev/trellis/internal/logbook"
	"github.com/trellisdev/trellis/internal/task"
)

// Reporter observes the lifecycle of a run. Callbacks are invoked from the
// run loop goroutine, never concurrently.
type Reporter interface {
	TaskStarted(t task.Task)
	TaskFinished(result TaskResult)
	RunFinished(report Report)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) TaskStarted(task.Task)   {}
func (NopReporter) TaskFinished(TaskResult) {}
func (NopReporter) RunFinished(Report)      {}

// LogbookReporter appends run events to a workspace logbook.
type LogbookReporter struct {
	Book *logbook.Logbook
}

func (r LogbookReporter) TaskStarted(t task.Task) {
	r.Book.Task(logbook.LevelInfo, string(t.ID), "started")
}

func (r LogbookReporter) TaskFinished(result TaskResult) {
	if result.State == StateFailed {
		r.Book.Task(logbook.LevelError, string(result.ID), "failed: %s", result.Error)
		return
	}
	r.Book.Task(logbook.LevelInfo, string(result.ID), "done in %s", result.FinishedAt.Sub(result.StartedAt))
}

func (r LogbookReporter) RunFinished(report Report) {
	failed := len(report.Failed())
	r.Book.Info("run %s finished: %d done, %d failed, %d stranded",
		report.RunID, len(report.Results)-failed, failed, len(report.Stranded))
}

// Combine fans events out to several reporters in order.
func Combine(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) TaskStarted(t task.Task) {
	for _, r := range m {
		r.TaskStarted(t)
	}
}

func (m multiReporter) TaskFinished(result TaskResult) {
	for _, r := range m {
		r.TaskFinished(result)
	}
}

func (m multiReporter) RunFinished(report Report) {
	for _, r := range m {
		r.RunFinished(report)
	}
}
