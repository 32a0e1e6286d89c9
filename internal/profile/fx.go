package profile

import (
	"go.uber.org/fx"

	"github.com/goghstudio/gogh-backend/internal/profile/service"
)

var Module = fx.Module("profile.service",
	fx.Provide(
		service.NewService,
	),
)
