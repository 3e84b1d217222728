// Package paralegal is an in-process client for the paralegal retrieval engine:
// hybrid keyword and vector search over ingested legal documents stored in
// Redis, with answers generated by an OpenAI-compatible chat model.
//
// # Asking questions
//
//	client, _ := paralegal.New(ctx,
//	    paralegal.WithRedis("localhost:6379", ""),
//	    paralegal.WithOpenAIEmbedding(paralegal.Provider{APIKey: key, BaseURL: url, Model: "text-embedding-004"}, 768),
//	    paralegal.WithOpenAIGeneration(paralegal.Provider{APIKey: groqKey, BaseURL: groqURL, Model: "mixtral-8x7b-32768"}),
//	)
//	defer client.Close()
//	resp, _ := client.Chat(ctx, "What did the court decide on costs?")
//
// # Ingesting chunks
//
// Ingest reads JSON Lines, one chunk per line:
//
//	{"source":"judgment.pdf","page":3,"chunk_id":0,"text":"..."}
//
//	res, _ := client.Ingest(ctx, "judgment.pdf", f)
package paralegal
