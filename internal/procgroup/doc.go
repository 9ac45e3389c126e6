// Package procgroup starts external encoders in their own process group so
// a timeout can reap the entire tree, not just the direct child.
package procgroup
