// Package model defines the provider-agnostic abstractions for talking to
// language models inside assetflow.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement Model in sub-packages so the chat
// layer stays decoupled from vendor SDKs. Callers that only need the final
// answer use Collect.
package model
