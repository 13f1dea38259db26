// Package httpclient is the outbound HTTP client used by the transcription
// providers and the webhook notifier.
//
// It resolves paths against a base URL, applies authentication, streams
// multipart uploads from disk through an io.Pipe, paces requests with an
// optional token-bucket rate limiter and classifies non-2xx responses into
// typed *Error values.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.openai.com",
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/v1/audio/transcriptions",
//	    Body:   &httpclient.MultipartBody{...},
//	})
package httpclient
