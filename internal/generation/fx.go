package generation

import (
	"go.uber.org/fx"

	"github.com/goghstudio/gogh-backend/internal/generation/service"
)

var Module = fx.Module("generation.service",
	fx.Provide(
		service.NewService,
	),
)
