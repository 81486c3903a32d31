// Package agent contains the core orchestrator responsible for answering
// natural-language questions about on-chain activity. It locates transaction
// hashes inside the question, pulls live data from the matching chain, and
// hands the combined context to the language model.
package agent
