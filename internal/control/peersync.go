// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package control

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/mark-ik/graphshell-sub001/internal/store"
)

// peerDelta is the wire envelope exchanged with a peer: the remote's
// Lamport stamp plus a journal mutation, gob-encoded (store.Mutation's
// concrete types are already gob.Register'd by internal/store, so the
// same registration covers this wire use).
type peerDelta struct {
	Lamport  uint64
	Mutation store.Mutation
}

// peerDeltaOut is the channel element type for PeerSync.Outbound: a local
// log entry plus the Lamport stamp it was tagged with at emission time.
type peerDeltaOut struct {
	Lamport  uint64
	Mutation store.Mutation
}

// NewOutboundMutation constructs the value callers send on the channel
// passed as PeerSync.Outbound.
func NewOutboundMutation(lamport uint64, m store.Mutation) peerDeltaOut {
	return peerDeltaOut{Lamport: lamport, Mutation: m}
}

// PeerSync maintains one peer websocket connection: forwards local
// mutations out, decodes inbound deltas into ApplyRemoteDelta intents,
// and reports connectivity loss via MarkPeerOffline with a retry-at
// timestamp rather than dropping the error silently (spec.md §4.4 "Peer
// sync"). Grounded on
// services/orchestrator/handlers/websocket.go's gorilla/websocket usage,
// adapted from a server-side upgrade handler to a client dialer since
// this worker is the connecting side.
type PeerSync struct {
	PeerID string
	URL    string
	Dialer *websocket.Dialer

	// Outbound carries local mutations (with their Lamport stamp) to
	// forward to the peer.
	Outbound <-chan peerDeltaOut

	// RetryBaseDelay is the initial reconnect backoff; doubles up to
	// RetryMaxDelay on repeated failures.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

func (p *PeerSync) Name() string { return "peer_sync:" + p.PeerID }

func (p *PeerSync) Run(ctx context.Context, send *Sender) {
	base := p.RetryBaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxDelay := p.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	dialer := p.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	delay := base
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := dialer.DialContext(ctx, p.URL, nil)
		if err != nil {
			p.reportOffline(send, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		delay = base
		p.serve(ctx, conn, send)
		conn.Close()
		p.reportOffline(send, base)
	}
}

// serve pumps inbound frames into ApplyRemoteDelta intents and outbound
// mutations onto the wire until ctx is cancelled or the connection
// fails.
func (p *PeerSync) serve(ctx context.Context, conn *websocket.Conn, send *Sender) {
	inbound := make(chan peerDelta)
	readErr := make(chan error, 1)

	go func() {
		defer close(inbound)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var d peerDelta
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&d); err != nil {
				continue // malformed frame; skip, don't tear down the connection
			}
			select {
			case inbound <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			_ = err
			return
		case d, ok := <-inbound:
			if !ok {
				return
			}
			_ = send.SendCritical(ctx, reducer.QueuedIntent{
				Source:  reducer.SourcePeerSync,
				Lamport: d.Lamport,
				Payload: reducer.ApplyRemoteDeltaIntent{PeerID: p.PeerID, Mutation: d.Mutation},
			})
		case out, ok := <-p.Outbound:
			if !ok {
				p.Outbound = nil
				continue
			}
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(peerDelta{Lamport: out.Lamport, Mutation: out.Mutation}); err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
				return
			}
		}
	}
}

func (p *PeerSync) reportOffline(send *Sender, retryAfter time.Duration) {
	send.TrySend(reducer.QueuedIntent{
		Source: reducer.SourcePeerSync,
		Payload: reducer.MarkPeerOfflineIntent{
			PeerID:  p.PeerID,
			RetryAt: time.Now().Add(retryAfter),
		},
	})
}
