// Package main is the entry point for the GraphRAG service.
//
//	@title			GraphRAG API
//	@version		1.0
//	@description	Hybrid knowledge-graph and vector retrieval with a self-validating answer loop.
//
//	@BasePath		/api/v1
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/graphrag/cmd/graphrag/app"
)

func main() {
	app.NewApp().Run()
}
