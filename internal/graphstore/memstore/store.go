// Package memstore is an in-process GraphStore that understands exactly the
// statements in graphstore's catalogue. It follows Cypher row semantics: two
// MATCH clauses produce the cartesian product of their matches and CREATE runs
// once per resulting row. Each RunWrite works on a private copy of the graph
// that replaces the shared one only when the unit of work succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/graphstore"
)

type node struct {
	id     int64
	name   string
	labels map[string]struct{}
}

type edge struct {
	from, to int64
	kind     string
}

type graph struct {
	nodes  []*node
	edges  []edge
	nextID int64
}

func (g *graph) clone() *graph {
	c := &graph{
		nodes:  make([]*node, 0, len(g.nodes)),
		edges:  make([]edge, len(g.edges)),
		nextID: g.nextID,
	}
	for _, n := range g.nodes {
		labels := make(map[string]struct{}, len(n.labels))
		for l := range n.labels {
			labels[l] = struct{}{}
		}
		c.nodes = append(c.nodes, &node{id: n.id, name: n.name, labels: labels})
	}
	copy(c.edges, g.edges)
	return c
}

func (g *graph) addNode(name string, labels ...string) *node {
	g.nextID++
	n := &node{id: g.nextID, name: name, labels: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		n.labels[l] = struct{}{}
	}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *graph) named(name string) []*node {
	var out []*node
	for _, n := range g.nodes {
		if n.name == name {
			out = append(out, n)
		}
	}
	return out
}

func (g *graph) byID(id int64) *node {
	for _, n := range g.nodes {
		if n.id == id {
			return n
		}
	}
	return nil
}

// Store is a goroutine-safe in-memory graph.
type Store struct {
	mu       sync.Mutex
	graph    *graph
	failures []error
}

// New returns an empty store.
func New() *Store {
	return &Store{graph: &graph{}}
}

// FailNext makes the next RunWrite fail with a transport-level store error
// wrapping err, before the unit of work runs.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

// RunWrite implements graphstore.GraphStore.
func (s *Store) RunWrite(ctx context.Context, work graphstore.UnitOfWork) ([]graphstore.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	operation := graphstore.OperationFrom(ctx)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError(apperrors.CodeStoreUnavailable, operation, "transaction not started", err)
	}
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return nil, apperrors.NewStoreError(apperrors.CodeStoreUnavailable, operation, "graph store unreachable", err)
	}

	working := s.graph.clone()
	rows, err := work(ctx, &tx{graph: working})
	if err != nil {
		if apperrors.IsStoreError(err) {
			return nil, err
		}
		return nil, apperrors.NewStoreError(apperrors.CodeTransactionFailed, operation, "transaction rolled back", err)
	}

	s.graph = working
	return rows, nil
}

// Close is a no-op; it exists so the store satisfies graphstore.Closer.
func (s *Store) Close(context.Context) error {
	return nil
}

type tx struct {
	graph *graph
}

func (t *tx) Run(ctx context.Context, statement string, params map[string]any) ([]graphstore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch statement {
	case graphstore.StmtDeleteAll:
		t.graph.nodes = nil
		t.graph.edges = nil
		return nil, nil

	case graphstore.StmtReturnNames:
		rows := make([]graphstore.Row, 0, len(t.graph.nodes))
		for _, n := range t.graph.nodes {
			rows = append(rows, graphstore.Row{"name": n.name})
		}
		return rows, nil

	case graphstore.StmtCreateTopic:
		name, err := stringParam(params, "name")
		if err != nil {
			return nil, err
		}
		t.graph.addNode(name, "Topic")
		return nil, nil

	case graphstore.StmtLinkPair:
		return t.linkPair(params)

	case graphstore.StmtCreateSubTopic:
		return t.createSubTopic(params)

	case graphstore.StmtRenameNode:
		return t.rename(params)

	case graphstore.StmtDuplicateNames:
		return t.duplicateNames(), nil

	default:
		return nil, apperrors.NewStoreError(apperrors.CodeUnsupportedStatement, "",
			fmt.Sprintf("memstore cannot execute %q", statement), nil)
	}
}

func (t *tx) linkPair(params map[string]any) ([]graphstore.Row, error) {
	from, err := stringParam(params, "from")
	if err != nil {
		return nil, err
	}
	to, err := stringParam(params, "to")
	if err != nil {
		return nil, err
	}

	var rows []graphstore.Row
	for _, n1 := range t.graph.named(from) {
		for _, n2 := range t.graph.named(to) {
			t.graph.edges = append(t.graph.edges, edge{from: n1.id, to: n2.id, kind: graphstore.RelatedTo})
			rows = append(rows, graphstore.Row{"from": n1.name, "to": n2.name})
		}
	}
	return rows, nil
}

func (t *tx) createSubTopic(params map[string]any) ([]graphstore.Row, error) {
	start, err := stringParam(params, "start")
	if err != nil {
		return nil, err
	}
	name, err := stringParam(params, "topic")
	if err != nil {
		return nil, err
	}
	label, err := stringParam(params, "label")
	if err != nil {
		return nil, err
	}

	// Matches are collected before any CREATE so new nodes never join the match.
	var rows []graphstore.Row
	for _, parent := range t.graph.named(start) {
		child := t.graph.addNode(name, label)
		t.graph.edges = append(t.graph.edges, edge{from: parent.id, to: child.id, kind: graphstore.RelatedTo})
		rows = append(rows, graphstore.Row{"name": child.name})
	}
	return rows, nil
}

func (t *tx) rename(params map[string]any) ([]graphstore.Row, error) {
	label, err := stringParam(params, "label")
	if err != nil {
		return nil, err
	}
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, err
	}
	newName, err := stringParam(params, "newName")
	if err != nil {
		return nil, err
	}

	var rows []graphstore.Row
	for _, n := range t.graph.named(name) {
		if _, ok := n.labels[label]; !ok {
			continue
		}
		n.name = newName
		rows = append(rows, graphstore.Row{"name": n.name})
	}
	return rows, nil
}

func (t *tx) duplicateNames() []graphstore.Row {
	counts := make(map[string]int64)
	for _, n := range t.graph.nodes {
		counts[n.name]++
	}

	names := make([]string, 0, len(counts))
	for name, c := range counts {
		if c > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	rows := make([]graphstore.Row, 0, len(names))
	for _, name := range names {
		rows = append(rows, graphstore.Row{"name": name, "occurrences": counts[name]})
	}
	return rows
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing parameter $%s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter $%s is %T, not string", key, v)
	}
	return s, nil
}

// Node is a committed node as seen by Snapshot.
type Node struct {
	Name   string
	Labels []string
}

// Edge is a committed relationship as seen by Snapshot.
type Edge struct {
	From string
	To   string
	Type string
}

// Snapshot is a point-in-time copy of the committed graph.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Snapshot returns the committed graph in creation order.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Nodes: make([]Node, 0, len(s.graph.nodes)),
		Edges: make([]Edge, 0, len(s.graph.edges)),
	}
	for _, n := range s.graph.nodes {
		labels := make([]string, 0, len(n.labels))
		for l := range n.labels {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		snap.Nodes = append(snap.Nodes, Node{Name: n.name, Labels: labels})
	}
	for _, e := range s.graph.edges {
		from, to := s.graph.byID(e.from), s.graph.byID(e.to)
		if from == nil || to == nil {
			continue
		}
		snap.Edges = append(snap.Edges, Edge{From: from.name, To: to.name, Type: e.kind})
	}
	return snap
}

// CountNamed returns how many nodes carry name.
func (s Snapshot) CountNamed(name string) int {
	n := 0
	for _, node := range s.Nodes {
		if node.Name == name {
			n++
		}
	}
	return n
}

// NodesNamed returns every node carrying name.
func (s Snapshot) NodesNamed(name string) []Node {
	var out []Node
	for _, node := range s.Nodes {
		if node.Name == name {
			out = append(out, node)
		}
	}
	return out
}

// EdgeCount returns how many from->to relationships exist.
func (s Snapshot) EdgeCount(from, to string) int {
	n := 0
	for _, e := range s.Edges {
		if e.From == from && e.To == to {
			n++
		}
	}
	return n
}

// HasEdge reports whether at least one from->to relationship exists.
func (s Snapshot) HasEdge(from, to string) bool {
	return s.EdgeCount(from, to) > 0
}
