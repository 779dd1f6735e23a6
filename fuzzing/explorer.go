package fuzzing

import "github.com/crytic/symfuzz/cfg"

// noParent marks the root of the frontier arena.
const noParent = -1

// frontierNode is a partial path held in the explorer's arena. Each node stores the handle of its parent so the full
// path can be rebuilt by walking upward. Parents are never modified through that handle.
type frontierNode struct {
	parent   int
	choice   int
	node     *cfg.Node
	depth    int
	children []int
}

// frontier is an arena of frontierNode values addressed by integer handles.
type frontier struct {
	nodes []frontierNode
}

// add appends a node to the arena and links it to its parent, returning its handle.
func (f *frontier) add(parent, choice int, node *cfg.Node) int {
	depth := 0
	if parent != noParent {
		depth = f.nodes[parent].depth + 1
	}
	handle := len(f.nodes)
	f.nodes = append(f.nodes, frontierNode{
		parent: parent,
		choice: choice,
		node:   node,
		depth:  depth,
	})
	if parent != noParent {
		f.nodes[parent].children = append(f.nodes[parent].children, handle)
	}
	return handle
}

// path rebuilds the path ending at the given handle.
func (f *frontier) path(handle int) Path {
	length := f.nodes[handle].depth + 1
	path := make(Path, length)
	for h := handle; h != noParent; h = f.nodes[h].parent {
		n := f.nodes[h]
		path[n.depth] = Step{Choice: n.choice, Node: n.node}
	}
	return path
}

// ExplorePaths enumerates candidate paths through the graph rooted at entry. Exploration proceeds in rounds, at most
// maxIter of them. In each round every live partial path either completes (its last node has no successors), is
// dropped (it is deeper than maxDepth), or forks into one extension per outgoing edge. The result lists completed
// paths in completion order followed by the paths still live when the round budget ran out, in creation order.
// The result is deterministic for a given graph and bounds.
func ExplorePaths(entry *cfg.Node, maxIter, maxDepth int) []Path {
	if entry == nil {
		return nil
	}

	var arena frontier
	live := []int{arena.add(noParent, 0, entry)}
	var completed []int

	for iter := 0; iter < maxIter && len(live) > 0; iter++ {
		var next []int
		for _, handle := range live {
			current := arena.nodes[handle]
			switch {
			case len(current.node.Children) == 0:
				completed = append(completed, handle)
			case current.depth > maxDepth:
				// Too deep: drop the partial path.
			default:
				for choice, child := range current.node.Children {
					next = append(next, arena.add(handle, choice, child))
				}
			}
		}
		live = next
	}

	paths := make([]Path, 0, len(completed)+len(live))
	for _, handle := range completed {
		paths = append(paths, arena.path(handle))
	}
	for _, handle := range live {
		paths = append(paths, arena.path(handle))
	}
	return paths
}
