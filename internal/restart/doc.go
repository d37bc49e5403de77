// Package restart decides whether a synchronized change requires a Home
// Assistant restart. Changed files are matched against an IgnoreList of exact
// file entries and directory prefix entries.
package restart
