// Package trees holds named values, e.g. model parameters, in a tree indexed by paths
// like "position_3/source_5".
package trees

import (
	"fmt"
	"iter"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/types/xslices"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Node is either a Value or a Map of its children -- but not both.
type Node[T any] struct {
	// Value is set for leaf nodes only.
	Value T

	// Map is set for non-leaf nodes (and nil in leaf nodes).
	Map map[string]*Node[T]
}

func (n *Node[T]) IsLeaf() bool { return n.Map == nil }

// Tree embeds its root node: for a tree with a single value the root is a leaf, otherwise it's a map.
//
// T is the type of the leaf nodes.
type Tree[T any] struct {
	*Node[T]
}

// PathSeparator joins path elements in the string representation of a Path.
const PathSeparator = "/"

// Path from the root node to a node.
type Path []string

// String joins the path elements with PathSeparator.
func (p Path) String() string { return strings.Join(p, PathSeparator) }

// ParsePath splits a path string on PathSeparator, dropping empty elements.
func ParsePath(s string) Path {
	return slices.DeleteFunc(strings.Split(s, PathSeparator), func(e string) bool { return e == "" })
}

// New creates a new empty tree, with a map root node.
func New[T any]() *Tree[T] {
	return &Tree[T]{Node: NewMapNode[T]()}
}

// NewLeaf creates a tree holding a single value at its root.
func NewLeaf[T any](value T) *Tree[T] {
	return &Tree[T]{Node: NewLeafNode(value)}
}

// NewMapNode creates a new node that is Map, empty.
func NewMapNode[T any]() *Node[T] {
	return &Node[T]{Map: make(map[string]*Node[T])}
}

// NewLeafNode creates a new leaf node with the given value.
func NewLeafNode[T any](value T) *Node[T] {
	return &Node[T]{Value: value}
}

// cleanPath removes empty elements, without modifying the caller's slice.
func cleanPath(treePath Path) Path {
	if slices.Index(treePath, "") >= 0 {
		return slices.DeleteFunc(slices.Clone(treePath), func(s string) bool { return s == "" })
	}
	return treePath
}

// Set value in treePath, populating intermediary nodes where needed.
//
// Empty elements in treePath are ignored, and an empty path refers to the root node.
//
// It returns an error if one is trying to set the value to an existing non-leaf node: nodes can either
// be a leaf or a Map (non-leaf), but not both.
func (tree *Tree[T]) Set(treePath Path, value T) error {
	treePath = cleanPath(treePath)
	node := tree.Node
	for ii, pathElement := range treePath {
		if node.IsLeaf() {
			var t T
			return errors.Errorf("trees.Tree[%T].Set(%q) trying to create a path using an existing leaf node (%q) as a non-leaf node",
				t, treePath, treePath[:ii])
		}
		newNode := node.Map[pathElement]
		if newNode == nil {
			if ii == len(treePath)-1 {
				newNode = NewLeafNode[T](value)
			} else {
				newNode = NewMapNode[T]()
			}
			node.Map[pathElement] = newNode
		}
		node = newNode
	}
	if !node.IsLeaf() {
		var t T
		return errors.Errorf("trees.Tree[%T].Set(%q) trying to set the value to a non-leaf node -- each node can either be a leaf node, or be a structural map of the tree",
			t, treePath)
	}
	node.Value = value
	return nil
}

// Get the leaf value at treePath. It returns false if there is no leaf at treePath.
func (tree *Tree[T]) Get(treePath Path) (value T, found bool) {
	node := tree.Node
	for _, pathElement := range cleanPath(treePath) {
		if node.IsLeaf() {
			return
		}
		node = node.Map[pathElement]
		if node == nil {
			return
		}
	}
	if !node.IsLeaf() {
		return
	}
	return node.Value, true
}

// String implements fmt.String
func (tree *Tree[T]) String() string {
	var parts []string
	parts = nodeToString(parts, PathSeparator, tree.Node, 0)
	return strings.Join(parts, "\n") + "\n"
}

func nodeToString[T any](parts []string, name string, subTree *Node[T], indent int) []string {
	indentSpaces := strings.Repeat("  ", indent)
	indent++
	if subTree.IsLeaf() {
		var valueAny any = subTree.Value
		if valueStr, ok := valueAny.(fmt.Stringer); ok {
			return append(parts, fmt.Sprintf("%s%q: %s", indentSpaces, name, valueStr))
		}
		return append(parts, fmt.Sprintf("%s%q: %v", indentSpaces, name, subTree.Value))
	}
	parts = append(parts, fmt.Sprintf("%s%q: {", indentSpaces, name))
	for _, key := range xslices.SortedKeys(subTree.Map) {
		parts = nodeToString(parts, key, subTree.Map[key], indent)
	}
	parts = append(parts, fmt.Sprintf("%s}", indentSpaces))
	return parts
}

// Map converts a Tree[T1] to a Tree[T2] by calling mapFn at every element.
func Map[T1, T2 any](tree1 *Tree[T1], mapFn func(Path, T1) T2) *Tree[T2] {
	if tree1.IsLeaf() {
		return NewLeaf(mapFn(nil, tree1.Value))
	}
	tree2 := New[T2]()
	for p, t1 := range tree1.Leaves() {
		if err := tree2.Set(p, mapFn(p, t1)); err != nil {
			// Duplicating the structure of a valid tree can't fail.
			panic(err)
		}
	}
	return tree2
}

// Leaves returns an iterator over all the leaf nodes of the Tree, in no particular order.
func (tree *Tree[T]) Leaves() iter.Seq2[Path, T] {
	return func(yield func(Path, T) bool) {
		recursiveLeaves(nil, tree.Node, false, yield)
	}
}

// NumLeaves traverses the trees and returns the number of leaf nodes.
func (tree *Tree[T]) NumLeaves() int {
	var count int
	for range tree.Leaves() {
		count++
	}
	return count
}

// OrderedLeaves returns an iterator that goes over all the leaf nodes of the Tree in alphabetical order of the
// tree nodes (depth-first).
func (tree *Tree[T]) OrderedLeaves() iter.Seq2[Path, T] {
	return func(yield func(Path, T) bool) {
		recursiveLeaves(nil, tree.Node, true, yield)
	}
}

func recursiveLeaves[T any](treePath Path, node *Node[T], ordered bool, yield func(Path, T) bool) bool {
	if node.IsLeaf() {
		return yield(slices.Clone(treePath), node.Value)
	}
	if ordered {
		for _, key := range xslices.SortedKeys(node.Map) {
			if !recursiveLeaves(append(treePath, key), node.Map[key], ordered, yield) {
				return false
			}
		}
		return true
	}
	for key, subNode := range node.Map {
		if !recursiveLeaves(append(treePath, key), subNode, ordered, yield) {
			return false
		}
	}
	return true
}

// ValuesAsList extracts the leaf values of Tree into a list, in the order of OrderedLeaves.
func ValuesAsList[T any](tree *Tree[T]) []T {
	results := make([]T, 0, tree.NumLeaves())
	for _, value := range tree.OrderedLeaves() {
		results = append(results, value)
	}
	return results
}

// FromValuesAndTree creates a Tree[T1] with the given values, but borrowing the structure from the given tree (but
// ignoring the tree's values).
func FromValuesAndTree[T1, T2 any](values []T1, tree *Tree[T2]) *Tree[T1] {
	numLeaves := tree.NumLeaves()
	if len(values) != numLeaves {
		exceptions.Panicf("%d values given, but the tree to be built has %d leaves.", len(values), numLeaves)
	}
	if tree.IsLeaf() {
		return NewLeaf(values[0])
	}
	newTree := New[T1]()
	var idx int
	for treePath := range tree.OrderedLeaves() {
		if err := newTree.Set(treePath, values[idx]); err != nil {
			panic(err)
		}
		idx++
	}
	return newTree
}
