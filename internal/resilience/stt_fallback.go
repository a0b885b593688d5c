package resilience

import (
	"context"
	"io"

	"github.com/dquispe/ventavoz/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// transcription backends. Each backend has its own circuit breaker.
//
// Failover only helps when the audio reader can be consumed again; a
// non-seekable stream gets one real attempt and later backends see a drained
// reader. The register uploads buffered clips, so in practice every backend
// sees the full audio.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe sends the clip to the first healthy provider. If the reader
// supports seeking it is rewound before each retry.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	seeker, _ := req.Audio.(io.Seeker)
	return ExecuteWithResult(f.group, func(p stt.Provider) (*stt.Transcript, error) {
		if seeker != nil {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
		}
		return p.Transcribe(ctx, req)
	})
}
