package pricing

import (
	"github.com/smallbiznis/quotient/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(service.New),
)
