package main

import (
	"time"

	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/app"
)

func main() {
	fx.New(
		app.CreateApp(),
		// First connect may need interactive login, default timeouts
		// are far too short for that
		fx.StartTimeout(6*time.Minute),
		fx.StopTimeout(30*time.Second),
	).Run()
}
