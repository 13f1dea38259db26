// Package notify delivers operational messages to one or more channels such
// as the console or a chat incoming webhook.
//
//	d := notify.NewDispatcher(
//		notify.NewConsoleChannel("console", os.Stdout),
//		webhook,
//	)
//	results := d.Send(ctx, notify.Message{Channel: "*", Message: "transcription failed"})
package notify
