// Package config provides configuration infrastructure and Fx modules.
package config

import (
	"go.uber.org/fx"
)

// Module provides the validated *Config loaded from the supplied file path.
var Module = fx.Module("config",
	fx.Provide(LoadConfig),
)
