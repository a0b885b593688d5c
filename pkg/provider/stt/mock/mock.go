// Package mock is a call-recording test double for [stt.Provider].
package mock

import (
	"context"
	"sync"

	"github.com/dquispe/ventavoz/pkg/provider/stt"
)

// TranscribeCall is one recorded Transcribe invocation.
type TranscribeCall struct {
	Ctx context.Context
	Req stt.Request
}

// Provider implements [stt.Provider] with a canned transcript. The zero
// value returns nil, nil from Transcribe.
type Provider struct {
	mu sync.Mutex

	// Transcript and TranscribeErr are returned by Transcribe.
	Transcript    *stt.Transcript
	TranscribeErr error

	// TranscribeCalls records every invocation, in order.
	TranscribeCalls []TranscribeCall
}

var _ stt.Provider = (*Provider)(nil)

func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: req})
	return p.Transcript, p.TranscribeErr
}

// Reset clears the recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}
