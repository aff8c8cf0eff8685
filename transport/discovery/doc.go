// Package discovery lets trigger boards find the game server on the local
// network.
//
// The server runs a Beacon that sends a fixed payload to a UDP multicast
// group at a regular interval. A board (or the board simulator) joins the
// group, waits for the payload and uses the sender address as the server
// host. The payload carries no data beyond the marker itself.
//
// Usage:
//
//	beacon, err := discovery.NewBeacon("224.1.1.1:5007",
//		discovery.WithInterval(5*time.Second),
//		discovery.WithTTL(2),
//	)
//	go beacon.Run(ctx)
//
//	addr, err := discovery.Listen(ctx, "224.1.1.1:5007", discovery.DefaultMessage)
package discovery
