// # Backends
//
//   - transcription/elevenlabs: ElevenLabs Scribe
//   - transcription/openai: OpenAI audio transcriptions
//   - transcription/cloudflare: Cloudflare Workers AI whisper
//   - transcription/whisper: self-hosted faster-whisper sidecar
//
// Variants embed *Base, which runs the shared pipeline: credential check,
// file existence, format, size, then the upload. Each variant supplies an
// Adapter with its request shape, status mapping and FormatResponse.
//
// # Usage
//
//	reg, err := transcription.NewRegistry(nil, elevenlabsProvider, openaiProvider)
//	router := transcription.NewRouter(reg, transcription.WithNotifier(dispatcher, "*"))
//	result, err := router.Transcribe(ctx, "meeting.mp3", transcription.Request{})
package transcription
