package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "ipc-assist/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap logger; commands replace it once the YAML config is loaded.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "ipc-assist",
		Usage: "Retrieval-augmented Q&A over the Indian Penal Code",
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "manage the vector index",
				Commands: []*cli.Command{
					{
						Name:  "build",
						Usage: "build the vector index from the corpus",
						Flags: []cli.Flag{
							envFlag(),
							&cli.BoolFlag{
								Name:  "force",
								Usage: "rebuild even when the persisted index is intact",
							},
						},
						Action: appcli.IndexBuildAction,
					},
					{
						Name:   "status",
						Usage:  "show the vector index state",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.IndexStatusAction,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "answer a single question",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "print the IPC sections the answer is grounded on",
					},
					&cli.BoolFlag{
						Name:  "stream",
						Usage: "print the answer as it is generated",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:   "chat",
				Usage:  "start the interactive terminal chat",
				Flags:  []cli.Flag{envFlag()},
				Action: appcli.ChatAction,
			},
			{
				Name:  "server",
				Usage: "HTTP chat server",
				Commands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "start the HTTP chat server",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.ServerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to the .env file",
		Value: ".env",
	}
}
