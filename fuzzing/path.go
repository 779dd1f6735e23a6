package fuzzing

import (
	"strconv"
	"strings"

	"github.com/crytic/symfuzz/cfg"
)

// Step is a single element of a Path: the node visited and the index of the edge that led into it from the previous
// step's node. The first step of a path has choice 0.
type Step struct {
	// Choice is the index of the previous node's child that was taken to arrive at Node.
	Choice int
	// Node is the visited node.
	Node *cfg.Node
}

// Path is an ordered sequence of steps from a function's entry towards a terminal node. Paths are immutable once
// produced by the explorer.
type Path []Step

// Nodes returns the nodes visited by the path.
func (p Path) Nodes() []*cfg.Node {
	nodes := make([]*cfg.Node, len(p))
	for i, step := range p {
		nodes[i] = step.Node
	}
	return nodes
}

// Terminal indicates whether the path ends on a node without successors.
func (p Path) Terminal() bool {
	return len(p) > 0 && len(p[len(p)-1].Node.Children) == 0
}

// String returns a compact description of the path listing node identifiers and edge choices.
func (p Path) String() string {
	var sb strings.Builder
	for i, step := range p {
		if i > 0 {
			sb.WriteString(" -")
			sb.WriteString(strconv.Itoa(step.Choice))
			sb.WriteString("-> ")
		}
		sb.WriteString("#")
		sb.WriteString(strconv.Itoa(step.Node.ID))
	}
	return sb.String()
}
