// Package graph defines the layout graph for Bild.
// The graph is an arena of node states addressed by integer NodeIDs, with
// directed edges that encode grid adjacency. Each node state records the
// block assigned to a cell, its orientation, its grid position and the
// connection points derived from the block's faces.
package graph
