// Command chat talks to the bot in the terminal with an in-memory state store.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"socialbot-be/internal/bootstrap"
	"socialbot-be/internal/config"
	"socialbot-be/internal/dto"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/internal/repository/memory"
	"socialbot-be/internal/service"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	userID := flag.String("user", uuid.NewString(), "user id; reuse it to be recognized as a returning user")
	verbose := flag.Bool("v", false, "log turn details to the console")
	flag.Parse()

	cfg := config.Load()
	var log logger.ILogger = logger.NewNopLogger()
	if *verbose {
		log = logger.NewZapLogger(cfg.App.LogFilePath, false)
	}

	d, err := bootstrap.NewDialog(cfg, memory.NewStateRepository(0), log)
	if err != nil {
		color.Red("Failed to start: %v", err)
		os.Exit(1)
	}
	conversation := service.NewConversationService(d.Controller, log)

	color.Cyan("Connected as %s. Type 'bye' to end, Ctrl-D to quit.\n", *userID)

	req := &dto.ConversationRequest{UserUuid: *userID, Client: "console"}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		res, err := conversation.Converse(context.Background(), req)
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		color.Green("BOT: %s", res.BotUtterance)
		if res.ShouldEndSession {
			return
		}

		fmt.Print(color.YellowString("YOU: "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		req.UserUtterance = scanner.Text()
		req.SessionUuid = res.SessionUuid
		req.Payload.CreationDateTime = res.Payload.CreationDateTime
	}
}
