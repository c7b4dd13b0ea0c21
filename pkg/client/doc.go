// Package client is a Go client for the tether HTTP API.
//
// It covers the calls an agent or a script needs: reading the pass
// allowance and history, using a pass, changing the monthly quota and
// checking whether the paired phone is near.
//
//	c, _ := client.New(
//	    client.WithBaseURL("http://tether.local:8080"),
//	    client.WithAPIKey(os.Getenv("TETHER_API_KEY")),
//	)
//	passes, _ := c.Passes(ctx)
//	if passes.Remaining > 0 {
//	    _, err := c.UsePass(ctx, "late flight tomorrow")
//	    if errors.Is(err, client.ErrNoPassesRemaining) {
//	        // someone else was faster
//	    }
//	}
package client
