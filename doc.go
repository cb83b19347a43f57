// Package chatsync implements the synchronization core of a real-time
// two-party chat client.
//
// The engine reconciles locally authored messages with a remote relay
// under unreliable delivery, concurrent edits, and asynchronous read
// and typing signals. A message is created optimistically, then
// converges to the relay's authoritative outcome: confirmed under the
// server-assigned id, failed and retryable, edited with an append-only
// history, read, or deleted. Rendering, markdown, profanity lexicons,
// notification delivery, and authentication are external
// collaborators injected at interfaces; the engine owns only state.
//
// # Getting Started
//
// Create an engine over a transport and set up callbacks for inbound
// events:
//
//	relay, err := transport.NewWebSocketTransport("wss://relay.example.com/chat")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	options := chatsync.NewOptions()
//	options.SenderID = session.LoginID
//
//	engine, err := chatsync.New(relay, options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	engine.OnMessageReceived(func(msg message.Message) {
//	    notify("New message", msg.Body)
//	})
//	engine.OnSessionInvalidated(func(err error) {
//	    session.Logout()
//	})
//
//	if err := engine.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	ok, err := engine.SendMessage(chatID, "hello", "")
//
// # Consistency model
//
// The message store is the single shared mutable resource; the
// synchronizer (outbound sends and edits), the event reconciler
// (inbound pushes), and the reply resolver all operate on one
// instance, serialized internally. Transport calls are the only
// suspension points and carry an explicit timeout; a timeout is
// treated identically to an explicit rejection. A store lookup miss
// during send or edit reconciliation means the local state and the
// relay have diverged beyond repair: the engine invalidates the
// session and surfaces it through OnSessionInvalidated instead of
// mutating further.
package chatsync
