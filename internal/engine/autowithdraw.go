package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
)

// RunDueAutoWithdrawals executes every enabled auto-withdraw schedule whose
// date has passed. Each due schedule gets one job keyed by (saving,
// scheduled date), so a schedule fires at most once per due date even if
// this runs repeatedly. A failed execution records the reason on the job;
// it is not retried for the same date.
func (e *Engine) RunDueAutoWithdrawals(now time.Time) ([]model.WithdrawJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if now.IsZero() {
		now = e.now()
	}

	savings, err := e.store.Savings()
	if err != nil {
		return nil, err
	}
	jobs, err := e.store.WithdrawJobs()
	if err != nil {
		return nil, err
	}

	var ran []model.WithdrawJob
	changed := false

	for i := range savings {
		s := &savings[i]
		auto := s.AutoWithdraw
		if s.Deleted || auto == nil || !auto.Enabled || auto.Date.IsZero() || auto.Date.After(now) {
			continue
		}

		due := auto.Date.Truncate(24 * time.Hour)
		if findJob(jobs, s.ID, due) != nil {
			continue
		}

		job := model.WithdrawJob{
			SyncMeta:     model.NewMeta(now),
			SavingID:     s.ID,
			Amount:       auto.Amount,
			ScheduledFor: due,
			State:        model.JobScheduled,
		}

		switch {
		case auto.Amount.LessThanOrEqual(decimal.Zero):
			job.State = model.JobFailed
			job.Error = "invalid amount"
			job.RanAt = now
		default:
			result, err := e.withdrawFromSaving(s.ID, auto.Amount, "Scheduled withdrawal: "+s.Name)
			if err != nil {
				return ran, err
			}
			if result.OK {
				job.State = model.JobExecuted
			} else {
				job.State = model.JobFailed
				job.Error = result.Message
			}
			job.RanAt = now
		}

		jobs = append(jobs, job)
		ran = append(ran, job)
		changed = true
	}

	if changed {
		if err := e.store.SetWithdrawJobs(jobs); err != nil {
			return ran, err
		}
	}
	return ran, nil
}

func findJob(jobs []model.WithdrawJob, savingID string, due time.Time) *model.WithdrawJob {
	for i := range jobs {
		if jobs[i].SavingID == savingID && jobs[i].ScheduledFor.Equal(due) {
			return &jobs[i]
		}
	}
	return nil
}
