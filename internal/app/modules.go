package app

import (
	"github.com/NoakLiu/SandGraphX/internal/capability"
	"github.com/NoakLiu/SandGraphX/modules/trading"
)

// coreModules is the definitive list of capability modules compiled into the
// sandgraph binary.
var coreModules = []capability.Module{
	&trading.Module{},
}
