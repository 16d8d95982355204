package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"ipc-assist/internal/core/chat"
)

// AskAction answers a single question and prints the result.
func AskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	showSources := cmd.Bool("show-sources")
	stream := cmd.Bool("stream")

	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if _, err := appCtx.Container.EnsureIndex(ctx, false); err != nil {
		return err
	}

	chatService := appCtx.Container.ChatService

	var turn *chat.Turn
	if stream {
		turn, err = chatService.AskStream(ctx, uuid.Nil, question, func(delta string) error {
			_, werr := fmt.Fprint(os.Stdout, delta)
			return werr
		})
		if err != nil {
			return err
		}
		fmt.Println()
	} else {
		turn, err = chatService.Ask(ctx, uuid.Nil, question)
		if err != nil {
			return err
		}
		for _, notice := range turn.Notices {
			fmt.Println(notice)
		}
		fmt.Println(turn.Answer)
	}

	if showSources && len(turn.Sources) > 0 {
		fmt.Println("\n--- Sources ---")
		for i, source := range turn.Sources {
			fmt.Printf("[%d] %s  score: %.4f\n", i+1, source.SectionID, source.Score)
		}
	}
	return nil
}
