package main

import (
	"ccbot/internal/config"
	"ccbot/internal/constants"
	"ccbot/internal/logger"
	"ccbot/pkg/bootstrap"
)

func main() {
	bootstrap.Execute(bootstrap.ServiceCommand{
		Name:  constants.ServiceNameBot,
		Short: "Telegram moderation bot",
		Long: "Receives Telegram updates over a webhook, handles admin commands and " +
			"dispatches scan and test requests to the AI worker",
		New: func(cfg *config.Config, log logger.Logger) bootstrap.Service {
			return NewApp(cfg, log)
		},
	})
}
