package domain

import "strconv"

// ChainID is the EIP-155 chain identifier.
type ChainID uint64
type ChainName string

const (
	// Chain IDs
	ChainIDEthereum ChainID = 1
	ChainIDPolygon  ChainID = 137
	ChainIDAmoy     ChainID = 80002
	ChainIDDev      ChainID = 8997

	// Chain Names (Internal Codes)
	ChainNameEthereum ChainName = "ETHEREUM_MAINNET"
	ChainNamePolygon  ChainName = "POLYGON_MAINNET"
	ChainNameAmoy     ChainName = "POLYGON_AMOY"
	ChainNameDev      ChainName = "DEV_NETWORK"
)

// ChainIDToName maps ChainID to its human-readable InternalCode/Name.
var ChainIDToName = map[ChainID]ChainName{
	ChainIDEthereum: ChainNameEthereum,
	ChainIDPolygon:  ChainNamePolygon,
	ChainIDAmoy:     ChainNameAmoy,
	ChainIDDev:      ChainNameDev,
}

// DefaultDevChainIDs lists the chains where fee suggestions are never fetched.
var DefaultDevChainIDs = []ChainID{ChainIDDev, ChainIDAmoy}

// Name returns the internal code for the chain, or "CHAIN_<id>" when unknown.
func (c ChainID) Name() ChainName {
	if name, ok := ChainIDToName[c]; ok {
		return name
	}
	return ChainName("CHAIN_" + strconv.FormatUint(uint64(c), 10))
}
