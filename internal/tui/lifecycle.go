package tui

// LifecycleEventType is the kind of control request the dashboard sends
// back to the task orchestrator running it.
type LifecycleEventType string

const (
	LifecycleRerunTask       LifecycleEventType = "rerun-task"
	LifecycleKillTask        LifecycleEventType = "kill-task"
	LifecycleRerunAllFailed  LifecycleEventType = "rerun-all-failed"
	LifecycleKillAllRunning  LifecycleEventType = "kill-all-running"
)

// LifecycleEvent is emitted by the dashboard to control task execution;
// TaskID is set for the single-task variants and empty for the bulk ones.
type LifecycleEvent struct {
	Type   LifecycleEventType
	TaskID string
}

func RerunTaskEvent(taskID string) LifecycleEvent {
	return LifecycleEvent{Type: LifecycleRerunTask, TaskID: taskID}
}

func KillTaskEvent(taskID string) LifecycleEvent {
	return LifecycleEvent{Type: LifecycleKillTask, TaskID: taskID}
}

func RerunAllFailedEvent() LifecycleEvent {
	return LifecycleEvent{Type: LifecycleRerunAllFailed}
}

func KillAllRunningEvent() LifecycleEvent {
	return LifecycleEvent{Type: LifecycleKillAllRunning}
}
