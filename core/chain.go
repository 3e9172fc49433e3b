package core

import "strings"

// Chain identifies a blockchain signature and addressing scheme
type Chain string

const (
	ChainAptos     Chain = "aptos"
	ChainAvalanche Chain = "avalanche"
	ChainEthereum  Chain = "ethereum"
	ChainBSC       Chain = "bsc"
	ChainPolygon   Chain = "polygon"
	ChainSolana    Chain = "solana"
)

// DefaultChain is used when a request omits the chain
const DefaultChain = ChainAvalanche

// ParseChain normalizes a chain identifier. It does not check that the chain is supported.
func ParseChain(s string) Chain {
	return Chain(strings.ToLower(strings.TrimSpace(s)))
}

func (c Chain) String() string {
	return string(c)
}
