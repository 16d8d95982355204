package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

const durationPrecision = 10 * time.Millisecond

// IndexBuildAction builds (or rebuilds) the vector index from the corpus.
func IndexBuildAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	force := cmd.Bool("force")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats := appCtx.Container.LoadStats
	fmt.Printf("Corpus: %d sections loaded, %d entries skipped\n",
		stats.Loaded, stats.Skipped)

	result, err := appCtx.Container.EnsureIndex(ctx, force)
	if err != nil {
		return err
	}

	if result.Rebuilt {
		fmt.Printf("Index built: %d sections, %d chunks, dimension %d (%s)\n",
			result.Sections, result.Chunks, result.Dimension, result.Duration.Round(durationPrecision))
	} else {
		fmt.Printf("Index up to date: %d chunks, dimension %d\n",
			result.Chunks, result.Dimension)
	}
	return nil
}

// IndexStatusAction prints the persisted index state.
func IndexStatusAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	status, err := appCtx.Container.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Backend:   %s\n", status.Backend)
	switch {
	case status.Stale:
		fmt.Println("State:     stale (run `ipc-assist index build`)")
	case !status.Ready:
		fmt.Println("State:     empty (run `ipc-assist index build`)")
	default:
		fmt.Println("State:     ready")
		fmt.Printf("Vectors:   %d\n", status.Count)
		fmt.Printf("Dimension: %d\n", status.Dimension)
	}
	return nil
}
