package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskAutomationSweep = "automation.sweep"

// SweepPayload identifies one sweep tick. The cadence determines the
// dedup window the worker derives for it.
type SweepPayload struct {
	CadenceSeconds int64 `json:"cadenceSeconds"`
}

func NewSweepTask(cadence time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SweepPayload{CadenceSeconds: int64(cadence / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutomationSweep, data), nil
}

func ParseSweepPayload(task *asynq.Task) (SweepPayload, error) {
	var payload SweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepPayload{}, err
	}
	return payload, nil
}
