// Package accountsync delivers AccountCreated events to a companion system
// in the background. A Queue accepts events from the request path without
// blocking and hands them to a Sender on a small worker pool, retrying with
// exponential backoff. HTTPSender posts JSON with a signed service token;
// AMQPSender publishes to a topic exchange.
//
// # Usage
//
//	sender := &accountsync.HTTPSender{URL: "https://api.example.com/internal/accounts", Secret: key}
//	queue := accountsync.NewQueue(sender, accountsync.Options{Workers: 2, MaxTries: 5})
//	defer queue.Close(ctx)
//	registrar.Syncer = queue
package accountsync
