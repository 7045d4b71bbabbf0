// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package diagnose

// signatureIndex is an Aho-Corasick automaton over the signature patterns of
// every matcher, built once at package init. A diagnosis scans the output
// tail exactly once in O(n) instead of running strings.Contains per pattern;
// tails run to 2 KB and the table holds close to a hundred patterns, and a
// crash-looping encoder can request diagnoses several times a second.
//
// Patterns are grouped, one group per matcher, and the group index doubles as
// priority: bestMatch reports the lowest group index found anywhere in the
// text, which is exactly the first-match-wins order of the matcher table.
type signatureIndex struct {
	root   *sigNode
	groups int
}

// sigNode is one automaton state. Output carries the group indices of every
// pattern ending at this state, including those inherited through failure
// links.
type sigNode struct {
	children map[rune]*sigNode
	failure  *sigNode
	output   []int
}

func newSigNode() *sigNode {
	return &sigNode{children: make(map[rune]*sigNode)}
}

// newSignatureIndex builds the automaton. Group order is priority order.
// Patterns must already be lowercase; inputs are lowered by the caller.
func newSignatureIndex(groups [][]string) *signatureIndex {
	ix := &signatureIndex{root: newSigNode(), groups: len(groups)}
	for i, patterns := range groups {
		for _, p := range patterns {
			ix.insert(i, p)
		}
	}
	ix.linkFailures()
	return ix
}

func (ix *signatureIndex) insert(group int, pattern string) {
	if pattern == "" {
		return
	}
	node := ix.root
	for _, ch := range pattern {
		next := node.children[ch]
		if next == nil {
			next = newSigNode()
			node.children[ch] = next
		}
		node = next
	}
	node.output = append(node.output, group)
}

// linkFailures wires the failure links breadth first. Parents are finished
// before their children, so inheriting the failure target's output here picks
// up every suffix pattern in one step during the scan.
func (ix *signatureIndex) linkFailures() {
	queue := make([]*sigNode, 0, len(ix.root.children))
	for _, child := range ix.root.children {
		child.failure = ix.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}
			if fail == nil {
				child.failure = ix.root
			} else {
				child.failure = fail.children[ch]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// bestMatch scans text once and returns the lowest group index whose pattern
// occurs anywhere in it. The scan stops early only when group 0 fires;
// any other hit could still be outranked by a later occurrence.
func (ix *signatureIndex) bestMatch(text string) (int, bool) {
	best := ix.groups
	node := ix.root

	for _, ch := range text {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = ix.root
			continue
		}
		node = node.children[ch]

		for _, group := range node.output {
			if group < best {
				best = group
				if best == 0 {
					return 0, true
				}
			}
		}
	}

	if best == ix.groups {
		return 0, false
	}
	return best, true
}

// contains reports whether any pattern occurs in text, stopping at the first
// hit.
func (ix *signatureIndex) contains(text string) bool {
	node := ix.root
	for _, ch := range text {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = ix.root
			continue
		}
		node = node.children[ch]
		if len(node.output) > 0 {
			return true
		}
	}
	return false
}

// signatures indexes the matcher table; markerIndex indexes the generic
// error markers consulted by the fallback path.
var (
	signatures  = newSignatureIndex(matcherPatternGroups())
	markerIndex = newSignatureIndex([][]string{errorMarkers})
)

func matcherPatternGroups() [][]string {
	groups := make([][]string, len(matchers))
	for i, m := range matchers {
		groups[i] = m.patterns
	}
	return groups
}
