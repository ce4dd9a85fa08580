// Package ragcore provides an embedded client for the hybrid retrieval
// engine: vector search over a Redis-hosted knowledge base with a keyword
// fallback, query expansion for weak evidence, and confidence-scored results.
//
//	client, _ := ragcore.New(
//	    ragcore.WithRedis("localhost:6379", ""),
//	    ragcore.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	out, _ := client.Retrieve(ctx, "when are tuition fees due",
//	    ragcore.WithLimit(5),
//	    ragcore.WithThreshold(0.6),
//	)
//	for _, r := range out.Results {
//	    fmt.Println(r.Title, r.Score())
//	}
//
// Without WithEmbedder the client embeds queries with a deterministic
// hash-derived vector, which keeps retrieval functional but approximate; the
// keyword fallback carries most of the relevance in that mode.
package ragcore
