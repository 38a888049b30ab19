package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	// ExecuteWrite runs work inside one managed write transaction. All
	// mutations of a reconciliation run go through a single call so that a
	// crash mid-application cannot leave the reference set half-updated.
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) error) error
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
