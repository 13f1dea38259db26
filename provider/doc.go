// Package provider holds the generic pieces shared by swappable backends: the
// base Provider interface, an ordered Registry, priority selection and
// middleware for request/response providers.
//
// A Registry keeps providers in a fixed priority order. Selection walks that
// order and picks the first provider that reports itself available:
//
//	reg := provider.NewRegistry[transcription.Provider]()
//	_ = reg.Register(openaiProvider)
//	_ = reg.Register(whisperProvider)
//	reg.SetPriority([]string{"whisper", "openai"})
//
//	sel := &provider.PrioritySelector[transcription.Provider]{}
//	p, err := sel.Select(ctx, reg.All())
//
// A RequestResponse provider can be decorated with Chain. The first
// middleware is outermost:
//
//	rr = provider.Chain(
//		provider.WithLogging[In, Out](log),
//		provider.WithTracing[In, Out]("transcription"),
//		provider.WithCircuitBreaker[In, Out](cb),
//	)(rr)
package provider
