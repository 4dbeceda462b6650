// Package uitree is an in-memory element tree that satisfies the
// narration Tree collaborator. Hosts without a real UI toolkit, the
// harness and tests build screens from it, usually loaded from YAML.
package uitree

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/narrator/pkg/narration"
)

var (
	// ErrDuplicateID is returned when two nodes share an id.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrNotFound is returned for ids not in the tree.
	ErrNotFound = errors.New("node not found")
)

// Node is one element. A node with a Key is speakable; LanguageCode
// forces the language of the node and its descendants.
type Node struct {
	ID           narration.NodeID `yaml:"id,omitempty"`
	Label        string           `yaml:"label,omitempty"`
	Key          string           `yaml:"key,omitempty"`
	LanguageCode string           `yaml:"languageCode,omitempty"`
	Focusable    bool             `yaml:"focusable,omitempty"`
	// Silent hides the subtree from narration, like aria-hidden.
	Silent   bool    `yaml:"silent,omitempty"`
	Children []*Node `yaml:"children,omitempty"`
}

// Tree holds the attached nodes.
type Tree struct {
	mu     sync.RWMutex
	root   *Node
	index  map[narration.NodeID]*Node
	parent map[*Node]*Node

	releases  int
	onRelease func()
	onDetach  func(ids []narration.NodeID)
}

// New builds a tree rooted at root.
func New(root *Node) (*Tree, error) {
	if root == nil {
		root = &Node{}
	}
	t := &Tree{
		root:   root,
		index:  make(map[narration.NodeID]*Node),
		parent: make(map[*Node]*Node),
	}
	if err := t.indexSubtree(root, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads a tree from a YAML file.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read tree: %w", err)
	}
	var root Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("unable to parse tree %s: %w", path, err)
	}
	t, err := New(&root)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded UI tree", "path", path, "nodes", len(t.index))
	return t, nil
}

// indexSubtree must be called with the lock held or before the tree is
// shared.
func (t *Tree) indexSubtree(n, parent *Node) error {
	if n.ID != "" {
		if _, dup := t.index[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		t.index[n.ID] = n
	}
	t.parent[n] = parent
	for _, c := range n.Children {
		if err := t.indexSubtree(c, n); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) unindexSubtree(n *Node) {
	if n.ID != "" {
		delete(t.index, n.ID)
	}
	delete(t.parent, n)
	for _, c := range n.Children {
		t.unindexSubtree(c)
	}
}

// Attached reports whether id is in the tree.
func (t *Tree) Attached(id narration.NodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.index[id]
	return ok
}

// SpeakableUnits returns the speakable nodes of id's subtree, id included,
// in document order. Silent subtrees are skipped.
func (t *Tree) SpeakableUnits(id narration.NodeID) []narration.Unit {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.index[id]
	if !ok {
		return nil
	}

	var units []narration.Unit
	var walk func(n *Node, lang string)
	walk = func(n *Node, lang string) {
		if n.Silent {
			return
		}
		if n.LanguageCode != "" {
			lang = n.LanguageCode
		}
		if n.Key != "" {
			units = append(units, narration.Unit{Key: n.Key, LanguageCode: lang})
		}
		for _, c := range n.Children {
			walk(c, lang)
		}
	}
	walk(n, t.inheritedLanguage(n))
	return units
}

// inheritedLanguage is the nearest ancestor language of n, n excluded.
func (t *Tree) inheritedLanguage(n *Node) string {
	for p := t.parent[n]; p != nil; p = t.parent[p] {
		if p.LanguageCode != "" {
			return p.LanguageCode
		}
	}
	return ""
}

// Detach removes id and its subtree, then passes the removed ids to the
// OnDetach hook.
func (t *Tree) Detach(id narration.NodeID) error {
	t.mu.Lock()
	n, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if p := t.parent[n]; p != nil {
		for i, c := range p.Children {
			if c == n {
				p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
				break
			}
		}
	} else {
		t.root = &Node{}
		t.parent[t.root] = nil
	}
	var removed []narration.NodeID
	collectIDs(n, &removed)
	t.unindexSubtree(n)
	fn := t.onDetach
	t.mu.Unlock()

	if fn != nil && len(removed) > 0 {
		fn(removed)
	}
	return nil
}

func collectIDs(n *Node, ids *[]narration.NodeID) {
	if n.ID != "" {
		*ids = append(*ids, n.ID)
	}
	for _, c := range n.Children {
		collectIDs(c, ids)
	}
}

// OnDetach sets a hook run after Detach with every removed id, in
// document order.
func (t *Tree) OnDetach(fn func(ids []narration.NodeID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDetach = fn
}

// Append attaches n as the last child of parent; an empty parent means
// the root.
func (t *Tree) Append(parent narration.NodeID, n *Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.root
	if parent != "" {
		var ok bool
		if p, ok = t.index[parent]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, parent)
		}
	}
	seen := make(map[narration.NodeID]bool)
	var check func(n *Node) error
	check = func(n *Node) error {
		if n.ID != "" {
			if _, dup := t.index[n.ID]; dup || seen[n.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
			}
			seen[n.ID] = true
		}
		for _, c := range n.Children {
			if err := check(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(n); err != nil {
		return err
	}

	_ = t.indexSubtree(n, p)
	p.Children = append(p.Children, n)
	return nil
}

// Focusable returns the focusable ids in document order.
func (t *Tree) Focusable() []narration.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []narration.NodeID
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Focusable && n.ID != "" {
			ids = append(ids, n.ID)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.root)
	return ids
}

// Label returns the display label of id.
func (t *Tree) Label(id narration.NodeID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n, ok := t.index[id]; ok {
		if n.Label != "" {
			return n.Label
		}
		return string(n.ID)
	}
	return ""
}

// OnReleaseFocus sets a hook run by ReleaseFocus.
func (t *Tree) OnReleaseFocus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRelease = fn
}

// ReleaseFocus drops lingering assistive focus before a new target is
// narrated.
func (t *Tree) ReleaseFocus() {
	t.mu.Lock()
	t.releases++
	fn := t.onRelease
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// FocusReleases counts ReleaseFocus calls.
func (t *Tree) FocusReleases() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.releases
}
