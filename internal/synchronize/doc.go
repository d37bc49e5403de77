// Package synchronize moves the Home Assistant working tree to the tip of its
// remote branch. A missing repository is recloned, a repository tracking a
// different remote is refused, and otherwise the branch is fetched and then
// pulled or hard-reset depending on the configured Mode.
package synchronize
