package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/goghstudio/gogh-backend/internal/calendar"
	"github.com/goghstudio/gogh-backend/internal/config"
	"github.com/goghstudio/gogh-backend/internal/credits"
	"github.com/goghstudio/gogh-backend/internal/generation"
	"github.com/goghstudio/gogh-backend/internal/llm"
	"github.com/goghstudio/gogh-backend/internal/observability"
	"github.com/goghstudio/gogh-backend/internal/profile"
	"github.com/goghstudio/gogh-backend/internal/ratelimit"
	"github.com/goghstudio/gogh-backend/internal/server"
	"github.com/goghstudio/gogh-backend/internal/subscription"
	"github.com/goghstudio/gogh-backend/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		subscription.Module,
		profile.Module,
		calendar.Module,
		credits.Module,
		llm.Module,
		generation.Module,
		ratelimit.Module,

		fx.Provide(server.NewEngine),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
