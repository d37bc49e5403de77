// Package reclone recovers a working tree that lost its repository by backing
// it up to a timestamped directory, clearing it and cloning the remote again.
package reclone
