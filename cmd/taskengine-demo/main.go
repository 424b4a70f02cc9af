// taskengine-demo exercises the engine end to end: it submits a batch of
// synthetic jobs, enables auto-config, and prints the resulting stats and
// recommendations.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/vasic-digital/taskengine/internal/autoconfig"
	"github.com/vasic-digital/taskengine/internal/engine"
	"github.com/vasic-digital/taskengine/internal/logging"
	"github.com/vasic-digital/taskengine/pkg/facade"
)

func main() {
	var (
		workers    int
		jobCount   int
		jobDelayMs int
		jsonOutput bool
		autoTune   bool
	)

	flag.IntVar(&workers, "workers", 4, "initial worker count")
	flag.IntVar(&jobCount, "jobs", 200, "number of synthetic jobs to submit")
	flag.IntVar(&jobDelayMs, "job-delay-ms", 5, "simulated per-job work duration in milliseconds")
	flag.BoolVar(&jsonOutput, "json", false, "print the final report as JSON")
	flag.BoolVar(&autoTune, "auto-tune", true, "enable the auto-config controller")
	flag.Parse()

	cfg := facade.DefaultConfig()
	cfg.Workers = workers
	cfg.LogLevel = logging.Info
	cfg.AutoConfig = autoTune
	cfg.Strategy = autoconfig.StrategyModerate

	eng := facade.New(cfg)
	defer eng.Shutdown()

	start := time.Now()
	batch, err := eng.SubmitMany(jobCount, func(i int) engine.Callable {
		return func() (engine.Result, error) {
			time.Sleep(time.Duration(jobDelayMs) * time.Millisecond)
			if rand.Intn(50) == 0 {
				return engine.Result{}, fmt.Errorf("synthetic failure on job %d", i)
			}
			return engine.Result{Data: []byte(fmt.Sprintf("job-%d-ok", i))}, nil
		}
	}, engine.SubmitOptions{}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "submit failed:", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	if autoTune {
		eng.ForceAnalysis()
	}

	report := struct {
		Elapsed         string                   `json:"elapsed"`
		Batch           facade.BatchOutcome      `json:"batch"`
		Stats           engine.StatsSnapshot     `json:"stats"`
		Recommendations autoconfig.Recommendations `json:"recommendations,omitempty"`
	}{
		Elapsed: elapsed.String(),
		Batch:   batch,
		Stats:   eng.Stats(),
	}
	if autoTune {
		report.Recommendations = eng.GetRecommendations()
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("submitted %d jobs in %s\n", jobCount, elapsed)
	fmt.Printf("succeeded=%d failed=%d\n", report.Batch.SuccessCount, report.Batch.ErrorCount)
	fmt.Printf("stats: %+v\n", report.Stats)
	if autoTune {
		fmt.Printf("recommendations: %+v\n", report.Recommendations)
	}
}
