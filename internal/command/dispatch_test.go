// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package command

import (
	"fmt"
	"testing"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchKnownVerbs(t *testing.T) {
	a := graph.NewNodeID()
	b := graph.NewNodeID()
	d := New()

	cases := []struct {
		line string
		want reducer.Payload
	}{
		{fmt.Sprintf("pin %s", a), reducer.PinNodeIntent{ID: a}},
		{fmt.Sprintf("unpin %s", a), reducer.UnpinNodeIntent{ID: a}},
		{fmt.Sprintf("tag %s urgent", a), reducer.TagNodeIntent{ID: a, Tag: "urgent"}},
		{fmt.Sprintf("untag %s urgent", a), reducer.UntagNodeIntent{ID: a, Tag: "urgent"}},
		{fmt.Sprintf("link %s %s", a, b), reducer.AssertEdgeIntent{A: a, B: b}},
		{fmt.Sprintf("unlink %s %s", a, b), reducer.RetractEdgeIntent{A: a, B: b}},
		{"split pane-1 vertical", reducer.SplitPaneIntent{PaneID: "pane-1", Direction: "vertical"}},
		{"close pane-1", reducer.ClosePaneIntent{PaneID: "pane-1"}},
		{"clear-graph", reducer.ClearGraphIntent{}},
	}

	for _, tc := range cases {
		got, err := d.Dispatch(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	d := New()
	_, err := d.Dispatch("frobnicate pane-1")
	assert.Error(t, err)
}

func TestDispatchEmptyInput(t *testing.T) {
	d := New()
	_, err := d.Dispatch("   ")
	assert.Error(t, err)
}

func TestDispatchRejectsMalformedNodeID(t *testing.T) {
	d := New()
	_, err := d.Dispatch("pin not-a-uuid")
	assert.Error(t, err)
}

func TestDispatchRejectsWrongArity(t *testing.T) {
	d := New()
	_, err := d.Dispatch("tag onlyonearg")
	assert.Error(t, err)
}

func TestRegisterOverridesHandler(t *testing.T) {
	d := New()
	d.Register("close", func(args []string) (reducer.Payload, error) {
		return reducer.ClearGraphIntent{}, nil
	})
	got, err := d.Dispatch("close whatever")
	require.NoError(t, err)
	assert.Equal(t, reducer.ClearGraphIntent{}, got)
}
