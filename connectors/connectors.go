// Package connectors registers every built-in connector with the
// runtime registry. Import it for side effects.
package connectors

import (
	_ "github.com/rzn-labs/datasourcer/connectors/biorxiv"
	_ "github.com/rzn-labs/datasourcer/connectors/github"
	_ "github.com/rzn-labs/datasourcer/connectors/hackernews"
	_ "github.com/rzn-labs/datasourcer/connectors/rss"
	_ "github.com/rzn-labs/datasourcer/connectors/tavily"
	_ "github.com/rzn-labs/datasourcer/connectors/web"
	_ "github.com/rzn-labs/datasourcer/connectors/wikipedia"
)
