package app

import (
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/modules/echo"
	"github.com/vk/dotmod/modules/envvars"
	"github.com/vk/dotmod/modules/pyreqs"
)

// coreModules is the definitive list of all modules that are compiled into
// the dotmod binary.
var coreModules = []handlers.Module{
	&echo.Module{},
	&envvars.Module{},
	&pyreqs.Module{},
}
