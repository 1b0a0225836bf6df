// Package drawdown simulates the emptying of a reservoir through a fixed
// outlet works after it is fully opened.
//
// Each step couples three quantities in a fixed order:
//
//   - head drives the outlet discharge ([hydraulics.Outlet.Flow])
//   - discharge over the step removes a volume from storage
//   - the new storage is mapped back to an elevation on the capacity curve,
//     and the elevation change is added to the head
//
// # Example
//
//	sim := drawdown.New(drawdown.Config{Dt: 1, Steps: 1100, FlowToVolume: drawdown.DefaultFlowToVolume})
//	if err := sim.Configure(outlet, capacity, area, drawdown.InitialCondition{Elevation: 2224, Head: 85}); err != nil {
//	    return err
//	}
//	res, err := sim.Run(ctx)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Results are immutable once
// returned and may be shared freely.
package drawdown
