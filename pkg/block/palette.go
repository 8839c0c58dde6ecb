package block

// Palette is an ordered set of blocks keyed by Symbol. Iteration order is
// insertion order, which keeps candidate generation deterministic.
type Palette struct {
	blocks []Block
	index  map[string]int
}

// NewPalette builds a palette, dropping later blocks whose symbol repeats.
func NewPalette(blocks ...Block) *Palette {
	p := &Palette{index: make(map[string]int)}
	for _, b := range blocks {
		p.Add(b)
	}
	return p
}

// Add inserts b and reports whether it was new.
func (p *Palette) Add(b Block) bool {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if _, ok := p.index[b.Symbol()]; ok {
		return false
	}
	p.index[b.Symbol()] = len(p.blocks)
	p.blocks = append(p.blocks, b)
	return true
}

// Lookup returns the block with the given symbol.
func (p *Palette) Lookup(symbol string) (Block, bool) {
	i, ok := p.index[symbol]
	if !ok {
		return nil, false
	}
	return p.blocks[i], true
}

// Blocks returns the palette contents. The slice must not be modified.
func (p *Palette) Blocks() []Block {
	return p.blocks
}

// Len returns the number of distinct blocks.
func (p *Palette) Len() int {
	return len(p.blocks)
}
