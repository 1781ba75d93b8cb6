package shipping

import (
	"github.com/smallbiznis/quotient/internal/shipping/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shipping.service",
	fx.Provide(service.New),
)
