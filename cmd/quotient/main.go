package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotient/internal/observability"
	"github.com/smallbiznis/quotient/internal/server"
	"github.com/smallbiznis/quotient/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		// HTTP surface and functional domains
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
