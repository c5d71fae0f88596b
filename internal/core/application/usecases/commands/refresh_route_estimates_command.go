package commands

import (
	"errors"

	"lastmile/internal/pkg/guard"
)

var ErrRefreshRouteEstimatesCommandIsNotConstructed = errors.New(
	"RefreshRouteEstimatesCommand must be created via NewRefreshRouteEstimatesCommand constructor",
)

// RefreshRouteEstimatesCommand recomputes the route of every driver with
// active deliveries and stores the per-stop estimates. It is parameterless
// and issued by the scheduler.
type RefreshRouteEstimatesCommand struct {
	guard guard.ConstructorGuard
}

func NewRefreshRouteEstimatesCommand() RefreshRouteEstimatesCommand {
	return RefreshRouteEstimatesCommand{
		guard: guard.NewConstructorGuard(),
	}
}

func (c *RefreshRouteEstimatesCommand) Validate() error {
	return c.guard.Validate(ErrRefreshRouteEstimatesCommandIsNotConstructed)
}
