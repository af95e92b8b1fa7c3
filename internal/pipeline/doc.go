// Package pipeline runs the connect flow as an ordered list of steps.
//
// A connect is MAC randomization, then Tor start or reuse, then exit
// verification. Each step fills in its part of a model.Attempt. The first
// failing step stops the pipeline, and its error comes back wrapped in a
// StepError naming the step.
package pipeline
