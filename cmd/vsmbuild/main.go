// Command vsmbuild reads a JSON corpus and writes a vsmindex archive.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"vsmindex/build"
	"vsmindex/fetcher"
	"vsmindex/termweight"
)

func encodeDocID(v uint32) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf, nil
}

func decodeDocID(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("doc id payload must be 4 bytes, got %d", len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

func main() {
	corpusPath := flag.String("corpus", "", "Path or URL to the input corpus JSON")
	outPath := flag.String("out", "index.vsm", "Path to write the built archive to")
	weightName := flag.String("weight", "tfidf", "Weighting function: tfidf, normalized_tf, or none")
	flag.Parse()

	if *corpusPath == "" {
		fmt.Println("Error: -corpus is required")
		os.Exit(1)
	}

	weight, err := parseWeight(*weightName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reading corpus: %s\n", *corpusPath)

	builder := build.New[uint32](encodeDocID, decodeDocID)
	if weight != nil {
		builder.WithWeight(*weight)
	}

	ids, err := fetcher.LoadInto(*corpusPath, builder, func(docID uint32) uint32 { return docID })
	if err != nil {
		fmt.Printf("Error loading corpus: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d documents\n", len(ids))

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Printf("Error creating %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	defer out.Close()

	idx, err := builder.Build(out)
	if err != nil {
		fmt.Printf("Error building index: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s: %d documents, %d distinct terms\n",
		*outPath, idx.Metadata().DocumentCount, idx.TermStore().Len())
}

func parseWeight(name string) (*termweight.Weight, error) {
	switch name {
	case "tfidf":
		w := termweight.TFIDFWeight
		return &w, nil
	case "normalized_tf":
		w := termweight.NormalizedTFWeight
		return &w, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown weighting %q (want tfidf, normalized_tf, or none)", name)
	}
}
