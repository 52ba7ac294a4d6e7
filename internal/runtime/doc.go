// Package runtime interprets bot content for a single inbound message.
//
// Two interpreters share the same driver: the block interpreter walks the cards of a
// block and the graph interpreter walks the nodes of a legacy flow. Both produce
// StepResult values which the driver turns into gateway calls, pauses, jumps and
// pause points. A Turn collects the pause point so the caller can persist it once.
//
// The package also holds the pure helpers the interpreters rely on: placeholder
// interpolation, condition evaluation and trigger matching.
package runtime
