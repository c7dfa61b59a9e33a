// Package pkg provides the core libraries for Flowsync bidirectional
// flowchart synchronization.
//
// # Overview
//
// Flowsync keeps two representations of the same flowchart in sync: the
// textual diagram source and an in-memory graph that canvas-style
// editors mutate directly. The pkg directory is organized into these
// areas:
//
//  1. [flow] - Graph model (nodes, edges, subgraphs, patches)
//  2. [parser] / [serializer] - Text to graph and back
//  3. [history] - Undoable commands over the model
//  4. [sync] - The debounced synchronization engine
//  5. [layout] - Graphviz-based automatic layout and SVG rendering
//  6. [store] - Draft persistence (memory, file, Redis, MongoDB)
//
// # Architecture
//
// The typical data flow through Flowsync:
//
//	Diagram text
//	         ↓
//	    [parser] package (text → model)
//	         ↓
//	    [flow] package (graph structure + mutation)
//	         ↓                         ↓
//	    [serializer] (model → text)   [layout] (positions + SVG)
//
// The [sync] package sits on top and routes changes from either side
// back to the other, debouncing notifications and recording graph
// mutations in [history] for undo and redo.
//
// # Quick Start
//
//	m, err := parser.Parse("flowchart LR\n  A[Start] --> B[Done]\n")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(serializer.Serialize(m))
package pkg
