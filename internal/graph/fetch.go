package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/microsoft/kiota-abstractions-go/serialization"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
)

// EscapeODataString doubles single quotes so a value can be embedded in an
// OData filter literal without breaking out of it.
func EscapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// IteratePages walks every page of a Graph collection response, invoking
// yield for each item. Follow-up pages are fetched lazily through the
// client's request adapter, so memory stays flat regardless of collection
// size. A yield error stops iteration and is returned unchanged.
func IteratePages[T any](ctx context.Context, conn *Connection, response serialization.Parsable, factory serialization.ParsableFactory, yield func(T) error) error {
	iterator, err := msgraphcore.NewPageIterator[T](response, conn.Client.GetAdapter(), factory)
	if err != nil {
		return fmt.Errorf("creating page iterator: %w", err)
	}

	var yieldErr error
	iterErr := iterator.Iterate(ctx, func(item T) bool {
		if err := yield(item); err != nil {
			yieldErr = err
			return false
		}
		return true
	})
	if yieldErr != nil {
		return yieldErr
	}
	return iterErr
}
