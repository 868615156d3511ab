// Package web holds the embedded browser front-end.
package web

import (
	_ "embed"
)

//go:embed static/index.html
var indexHTML []byte

// Index returns the landing page HTML.
func Index() []byte {
	return indexHTML
}
