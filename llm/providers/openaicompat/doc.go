// Package openaicompat provides the raw HTTP llm.Provider for servers that
// speak the OpenAI Chat Completions format.
//
// It backs the "local" (vLLM, default http://localhost:8000) and "vapi"
// (https://api.gpt.ge) backends:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "local",
//	    BaseURL:      "http://localhost:8000",
//	    DefaultModel: "DeepSeek-V2-16B",
//	}, logger)
//	resp, err := p.Completion(ctx, llm.UserPrompt("", prompt))
//
// HTTP failures are mapped with providers.MapHTTPError, so 429 and 5xx
// responses come back as retryable errors.
package openaicompat
