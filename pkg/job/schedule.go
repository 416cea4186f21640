package job

import (
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronSchedule adapts a robfig schedule to river.PeriodicSchedule.
type cronSchedule struct {
	cron.Schedule
}

func (s cronSchedule) Next(current time.Time) time.Time {
	return s.Schedule.Next(current)
}

// parseCronSchedule accepts standard 5-field expressions and descriptors
// such as "@hourly".
func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return cronSchedule{schedule}, nil
}

// periodicJob builds the River periodic job for a scheduled task.
func periodicJob(s scheduleConfig, runOnStart bool) (*river.PeriodicJob, error) {
	schedule, err := parseCronSchedule(s.schedule)
	if err != nil {
		return nil, err
	}
	name := s.name
	return river.NewPeriodicJob(
		schedule,
		func() (river.JobArgs, *river.InsertOpts) {
			return &taskArgs{TaskName: name}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: runOnStart},
	), nil
}
