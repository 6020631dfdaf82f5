package huffman

import (
	"container/heap"
)

type huffmanTree interface {
	getFrequency() int
	getId() int
}
type huffmanLeaf struct {
	freq, id int
	symbol   int
}
type huffmanNode struct {
	freq, id    int
	left, right huffmanTree
}

type huffmanHeap []huffmanTree

func (hub *huffmanHeap) Push(item any) {
	*hub = append(*hub, item.(huffmanTree))
}

func (hub *huffmanHeap) Pop() any {
	popped := (*hub)[len(*hub)-1]
	(*hub) = (*hub)[:len(*hub)-1]
	return popped
}

func (hub huffmanHeap) Len() int {
	return len(hub)
}

func (hub huffmanHeap) Less(i, j int) bool {
	if hub[i].getFrequency() != hub[j].getFrequency() {
		return hub[i].getFrequency() < hub[j].getFrequency()
	}
	return hub[i].getId() < hub[j].getId()
}

func (hub huffmanHeap) Swap(i, j int) {
	hub[i], hub[j] = hub[j], hub[i]
}

func (leaf huffmanLeaf) getId() int {
	return leaf.id
}

func (leaf huffmanLeaf) getFrequency() int {
	return leaf.freq
}

func (node huffmanNode) getFrequency() int {
	return node.freq
}

func (node huffmanNode) getId() int {
	return node.id
}

// buildTree merges the two lightest trees until one remains. Leaves are
// numbered in symbol order so equal weights always merge the same way.
// Returns nil when no symbol has a non-zero frequency.
func buildTree(symbolFreq []int) huffmanTree {
	var treehub huffmanHeap
	monoId := 0
	for symbol, freq := range symbolFreq {
		if freq == 0 {
			continue
		}
		treehub = append(treehub, huffmanLeaf{
			freq:   freq,
			symbol: symbol,
			id:     monoId,
		})
		monoId++
	}
	if len(treehub) == 0 {
		return nil
	}
	heap.Init(&treehub)
	for treehub.Len() > 1 {
		x := heap.Pop(&treehub).(huffmanTree)
		y := heap.Pop(&treehub).(huffmanTree)
		heap.Push(&treehub, huffmanNode{
			freq:  x.getFrequency() + y.getFrequency(),
			left:  x,
			right: y,
			id:    monoId,
		})
		monoId++
	}
	return heap.Pop(&treehub).(huffmanTree)
}

type leafDepth struct {
	symbol, freq, length int
}

func collectDepths(tree huffmanTree, depth int, out []leafDepth) []leafDepth {
	switch t := tree.(type) {
	case huffmanLeaf:
		return append(out, leafDepth{symbol: t.symbol, freq: t.freq, length: depth})
	case huffmanNode:
		out = collectDepths(t.left, depth+1, out)
		return collectDepths(t.right, depth+1, out)
	}
	return out
}

// limitLengths clamps every code to maxLength and then restores the Kraft
// equality: over-full codes push their least frequent longest-but-not-max
// leaf one level down, under-full codes pull their most frequent longest
// leaf one level up. leaves must be sorted by descending frequency.
func limitLengths(leaves []leafDepth, maxLength int) {
	budget := 1 << maxLength
	kraft := 0
	for i := range leaves {
		if leaves[i].length > maxLength {
			leaves[i].length = maxLength
		}
		kraft += 1 << (maxLength - leaves[i].length)
	}
	for kraft > budget {
		pick := -1
		for i := len(leaves) - 1; i >= 0; i-- {
			if leaves[i].length < maxLength && (pick < 0 || leaves[i].length > leaves[pick].length) {
				pick = i
			}
		}
		kraft -= 1 << (maxLength - leaves[pick].length - 1)
		leaves[pick].length++
	}
	for kraft < budget {
		pick := -1
		for i := range leaves {
			if leaves[i].length > 1 && (pick < 0 || leaves[i].length > leaves[pick].length) {
				pick = i
			}
		}
		if pick < 0 {
			return
		}
		kraft += 1 << (maxLength - leaves[pick].length)
		leaves[pick].length--
	}
}
