package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketcore/ingestcore/internal/orchestrator"
	"github.com/marketcore/ingestcore/internal/scheduler"
	"github.com/marketcore/ingestcore/internal/schema"
)

// serveCmd runs the scheduler and sink flush loop until interrupted,
// firing every registered provider on its tier cadence.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion core: scheduler, orchestrator, and sink flush loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := notifyContext()
			defer cancel()

			app, err := buildApp(ctx, configPath)
			if err != nil {
				return err
			}

			sched := scheduler.New(schedulerRunFunc(app.Orchestrator), app.Metrics)
			for _, desc := range app.Registry.List() {
				for _, dt := range desc.DataTypes {
					sched.AddTask(scheduler.NewTask(desc.Name, desc.Name, dt, tierFor(dt), nil))
				}
			}

			go app.Sink.Run(ctx)
			log.Info().Int("tasks", len(sched.Tasks())).Msg("ingestcore: serving")
			sched.Start(ctx)
			return nil
		},
	}
}

func schedulerRunFunc(orch *orchestrator.Orchestrator) scheduler.RunFunc {
	return func(ctx context.Context, task *scheduler.ScheduledTask) error {
		_, _, err := orch.RunTask(ctx, task.Adapter, task.DataType, nil)
		return err
	}
}

// tierFor assigns each data type its scheduling cadence: ticks need the
// high-frequency tier, news the medium tier, macro data the daily tier,
// everything else the low tier.
func tierFor(dt schema.DataType) scheduler.Tier {
	switch dt {
	case schema.DataTypeTick:
		return scheduler.TierHigh
	case schema.DataTypeNews:
		return scheduler.TierMedium
	case schema.DataTypeMacro:
		return scheduler.TierDaily
	default:
		return scheduler.TierLow
	}
}
