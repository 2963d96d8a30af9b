// Package audit delivers security events off the request path.
//
// The engine decides what to record and builds an [Event]; a [Dispatcher]
// queues it and hands it to a [Sink] on one background goroutine. Sinks shipped
// here write to a channel, a JSON-lines writer or a zap logger, and MultiSink
// fans out to several of them. Delivery is best effort: a full queue either drops
// (counted by Dropped) or blocks the caller, depending on Config.DropIfFull.
package audit
