package convert

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is one conversion of a batch. An empty Destination uses DefaultOutput.
type Job struct {
	Source      string
	Destination string
}

// Outcome is the result of a Job.
type Outcome struct {
	Report *Report
	Err    error
	Job
}

type indexedJob struct {
	Job
	index int
}

// ConvertAll runs jobs on up to concurrency workers and returns one outcome
// per job, in job order. Jobs are independent: a failure does not stop the batch.
func (c *Converter) ConvertAll(jobs []Job, concurrency int) []Outcome {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}

	queue := make(chan indexedJob, len(jobs))
	for i, j := range jobs {
		queue <- indexedJob{Job: j, index: i}
	}
	close(queue)

	out := make([]Outcome, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				rep, err := c.Convert(j.Source, j.Destination)
				if err != nil {
					log.Debug().
						Err(err).
						Str("source", j.Source).
						Msg("Batch job failed")
				}
				// each worker writes distinct indexes
				out[j.index] = Outcome{Job: j.Job, Report: rep, Err: err}
			}
		}()
	}
	wg.Wait()

	return out
}
