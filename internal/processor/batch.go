package processor

import (
	"context"
	"log"
	"time"

	"artsync/internal/models"
)

// ProcessBatch pulls up to BatchSize eligible backlog entries and runs them
// one at a time with a fixed pause in between, to stay under the provider's
// rate limits. One task's failure never aborts the rest; every outcome is
// captured.
func (p *Processor) ProcessBatch(ctx context.Context) ([]models.TaskResult, error) {
	tasks, err := p.Store.FetchProcessableTasks(ctx, p.BatchSize, p.MaxRetry)
	if err != nil {
		return nil, err
	}

	results := make([]models.TaskResult, 0, len(tasks))
	for i, task := range tasks {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(p.Pause):
			}
		}

		out := p.ProcessTask(ctx, task.ID)
		r := models.TaskResult{ID: out.TaskID, Status: out.Status}
		if out.Err != nil {
			r.Error = out.Err.Error()
		}
		results = append(results, r)
		log.Println("batch: task", "id=", out.TaskID, "status=", out.Status)
	}

	return results, nil
}
