package main

import (
	"ccbot/internal/config"
	"ccbot/internal/constants"
	"ccbot/internal/logger"
	"ccbot/pkg/bootstrap"
)

func main() {
	bootstrap.Execute(bootstrap.ServiceCommand{
		Name:  constants.ServiceNameAIWorker,
		Short: "AI worker for the moderation bot",
		Long:  "Accepts scan and test tasks, asks the LLM provider and reports back to the chat",
		New: func(cfg *config.Config, log logger.Logger) bootstrap.Service {
			return NewApp(cfg, log)
		},
	})
}
