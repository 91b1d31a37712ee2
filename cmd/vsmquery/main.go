// Command vsmquery opens a vsmindex archive and runs a single query
// against it, ranking results by cosine similarity.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"vsmindex/sparsevec"
	"vsmindex/vsm"
)

func decodeDocID(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("doc id payload must be 4 bytes, got %d", len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

type scoredDoc struct {
	DocID uint32
	Score float32
}

func main() {
	indexPath := flag.String("index", "index.vsm", "Path to the archive to query")
	flag.Parse()

	idx, err := vsm.Open[uint32](*indexPath, decodeDocID)
	if err != nil {
		fmt.Printf("Error opening %s: %v\n", *indexPath, err)
		os.Exit(1)
	}

	query := getQuery()
	terms := strings.Fields(query)
	fmt.Printf("Query: %s\n", query)
	fmt.Printf("Terms: %v\n", terms)

	queryVec, ok := idx.BuildVector(terms, nil)
	if !ok {
		fmt.Println("No query terms resolved against the index.")
		return
	}

	it := idx.GetVectorStore().GetForVec(&queryVec)
	var results []scoredDoc
	for it.Next() {
		dv := it.Vector()
		vec := dv.Vector
		results = append(results, scoredDoc{
			DocID: dv.Payload,
			Score: sparsevec.Similarity(&queryVec, &vec),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	printResults(results)
}

func getQuery() string {
	query, exists := os.LookupEnv("QUERY")
	if !exists {
		query = "great vector database"
	}
	return query
}

func printResults(results []scoredDoc) {
	fmt.Printf("Scored documents: %d\n", len(results))
	fmt.Println(strings.Repeat("-", 22))
	fmt.Printf("| %-8s | %-8s |\n", "DocID", "Score")
	fmt.Println(strings.Repeat("-", 22))
	for _, doc := range results {
		fmt.Printf("| %-8d | %8.4f |\n", doc.DocID, doc.Score)
	}
	fmt.Println(strings.Repeat("-", 22))
}
