package history

import (
	"github.com/smallbiznis/quotient/internal/history/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("history.provider",
	fx.Provide(repository.Provide),
)
