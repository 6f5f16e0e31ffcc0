package landkeeper

import "hash/fnv"

// pathNode is a single level of the flattener's trie: concrete child
// segments keyed by name, plus an optional wildcard child matching any
// map key or array index not otherwise present.
type pathNode struct {
	children map[string]*pathNode
	wildcard *pathNode
	hash     uint32
	terminal bool
}

// PathFlattener builds a structural index of a schema's JSON-Pointer
// paths, collapsing map keys and array indices into a single wildcard
// segment ("*") so that resolvers and transports can reference "the
// player's inventory slot" without caring which slot changed.
type PathFlattener struct {
	root *pathNode
}

// NewPathFlattener builds a flattener over schema's reachable fields.
func NewPathFlattener(schema *Schema) *PathFlattener {
	f := &PathFlattener{root: &pathNode{children: make(map[string]*pathNode)}}
	f.index(f.root, schema, "")
	return f
}

// index adds schema's fields under node. prefix is the structural path
// of node ("" at the root, otherwise ending in "/"), so each node's hash
// covers its whole structural path, e.g. "players/*/name".
func (f *PathFlattener) index(node *pathNode, schema *Schema, prefix string) {
	if schema == nil {
		return
	}
	for _, field := range schema.Fields {
		path := prefix + field.Name
		child := &pathNode{children: make(map[string]*pathNode), terminal: true}
		child.hash = HashPath(path)
		node.children[field.Name] = child

		switch field.Type {
		case TypeStruct:
			f.index(child, field.ChildSchema, path+"/")
		case TypeArray, TypeMap, TypeSet:
			wc := &pathNode{children: make(map[string]*pathNode), terminal: true}
			wc.hash = HashPath(path + "/*")
			child.wildcard = wc
			if field.ChildSchema != nil {
				f.index(wc, field.ChildSchema, path+"/*/")
			}
		}
	}
}

// Resolve walks a concrete path's segments through the trie, falling
// back to the wildcard child when a segment has no exact match (a map
// key or array index), and returns the structural pattern's FNV-1a-32
// hash along with whether the path resolved to a known field at all.
func (f *PathFlattener) Resolve(path string) (hash uint32, ok bool) {
	segments := splitPath(path)
	node := f.root
	for _, seg := range segments {
		if next, exact := node.children[seg]; exact {
			node = next
			continue
		}
		if node.wildcard != nil {
			node = node.wildcard
			continue
		}
		return 0, false
	}
	if node == f.root || !node.terminal {
		return 0, false
	}
	return node.hash, true
}

// PathHasher computes the deterministic FNV-1a-32 hash for a structural
// path, used to key a resolver-output cache or a persisted index without
// retaining the concrete string.
type PathHasher struct{}

// HashPath returns the FNV-1a-32 hash of path's UTF-8 bytes.
func HashPath(path string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return h.Sum32()
}
