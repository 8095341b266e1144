// Package analysis interprets the search output of a running engine.
//
// A Driver registers itself as the engine's output listener. The listener
// only hands raw lines to a buffered channel; the driver's own goroutine
// parses them and folds them into a State that callers read with Snapshot
// or receive through OnUpdate callbacks:
//
//	d := analysis.NewDriver(eng, analysis.WithLogger(logger))
//	d.OnUpdate(func(s analysis.State) { render(s) })
//	d.Start()
//	defer d.Close()
//
// Labelled statistics keep their previous value when a line omits them.
// Principal variations are kept for at most MaxLines slots; only the first
// move of each is decoded to squares.
package analysis
