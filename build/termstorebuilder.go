package build

import "sort"

// termStoreBuilder accumulates term statistics during a build: which
// insertion id a term text maps to, how many documents contain it, and
// how many times it occurs in each document. The final sorted position
// of each insertion id is only known once every term has been seen, so
// it is computed lazily by buildOrderMap.
type termStoreBuilder struct {
	ids       map[string]int
	texts     []string // insertion id -> text, for order-map construction
	docFreq   map[int]uint32
	termFreq  map[[2]int]uint32 // (insertionID, docID) -> occurrences
	orderMap  map[int]int       // insertion id -> sorted dim, built once
}

func newTermStoreBuilder() *termStoreBuilder {
	return &termStoreBuilder{
		ids:      make(map[string]int),
		docFreq:  make(map[int]uint32),
		termFreq: make(map[[2]int]uint32),
	}
}

// getOrAddTerm returns term's insertion id, allocating a new one if this
// is the first time text has been seen.
func (b *termStoreBuilder) getOrAddTerm(text string) int {
	if id, ok := b.ids[text]; ok {
		return id
	}
	id := len(b.texts)
	b.ids[text] = id
	b.texts = append(b.texts, text)
	return id
}

func (b *termStoreBuilder) incrementTermFreq(insertionID, docID int) {
	b.termFreq[[2]int{insertionID, docID}]++
}

func (b *termStoreBuilder) incrementDocFreq(insertionID int) {
	b.docFreq[insertionID]++
}

func (b *termStoreBuilder) termFreqOf(insertionID, docID int) uint32 {
	return b.termFreq[[2]int{insertionID, docID}]
}

func (b *termStoreBuilder) docFreqOf(insertionID int) uint32 {
	return b.docFreq[insertionID]
}

// buildOrderMap sorts every known term text lexicographically and
// assigns each insertion id its final dimension. Idempotent.
func (b *termStoreBuilder) buildOrderMap() {
	if b.orderMap != nil {
		return
	}
	order := make([]int, len(b.texts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return b.texts[order[i]] < b.texts[order[j]] })

	b.orderMap = make(map[int]int, len(order))
	for pos, insertionID := range order {
		b.orderMap[insertionID] = pos
	}
}

func (b *termStoreBuilder) sortedDim(insertionID int) int {
	return b.orderMap[insertionID]
}
