// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., the OpenAI Whisper
// API) and exposes a uniform batch interface: one audio recording in, one
// transcript out. The voice pipeline records short utterances at the
// counter — a few seconds of "dame dos kilos de arroz" — so batch
// transcription fits the latency budget and keeps the interface small.
//
// Implementations must be safe for concurrent use; multiple registers may
// transcribe simultaneously.
package stt

import (
	"context"
	"io"
)

// Request carries one audio recording to transcribe.
type Request struct {
	// Audio is the encoded audio stream. The provider reads it to completion;
	// the caller retains ownership and closes it if needed.
	Audio io.Reader

	// Filename hints the container format to the backend (e.g. "clip.webm",
	// "clip.mp3"). Hosted APIs use the extension to pick a decoder.
	Filename string

	// Language is the ISO-639-1 code of the expected speech language.
	// Empty lets the provider auto-detect, which costs accuracy on short
	// Spanish utterances full of brand names.
	Language string

	// Prompt optionally biases recognition toward expected vocabulary,
	// such as local product and brand names.
	Prompt string
}

// Transcript is the result of transcribing one recording.
type Transcript struct {
	// Text is the recognized speech, as returned by the backend.
	Text string
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
type Provider interface {
	// Transcribe sends the recording to the backend and returns the
	// recognized text. Returns an error if the request fails, the audio is
	// unreadable, or ctx is cancelled first.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
