package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Go mirrors of the contract tuples. Field order follows the ABI component
// order and every field carries its ABI name, so the same structs can be
// packed as return values and filled from unpacked call data.

type Permission struct {
	Account common.Address `abi:"account"`
	Key     string         `abi:"key"`
}

type File struct {
	ID             *big.Int       `abi:"id"`
	OwnerAddress   common.Address `abi:"ownerAddress"`
	URL            string         `abi:"url"`
	ProofsCount    *big.Int       `abi:"proofsCount"`
	AddedTimestamp *big.Int       `abi:"addedTimestamp"`
}

type ProofData struct {
	ID       *big.Int `abi:"id"`
	FileURL  string   `abi:"fileUrl"`
	ProofURL string   `abi:"proofUrl"`
}

type Proof struct {
	Signature []byte    `abi:"signature"`
	Data      ProofData `abi:"data"`
}

type NodeInfo struct {
	NodeAddress common.Address `abi:"nodeAddress"`
	URL         string         `abi:"url"`
	Status      uint8          `abi:"status"`
	Fee         *big.Int       `abi:"fee"`
	JobsCount   *big.Int       `abi:"jobsCount"`
	PublicKey   string         `abi:"publicKey"`
}

type Job struct {
	FileID         *big.Int       `abi:"fileId"`
	BidAmount      *big.Int       `abi:"bidAmount"`
	Status         uint8          `abi:"status"`
	AddedTimestamp *big.Int       `abi:"addedTimestamp"`
	OwnerAddress   common.Address `abi:"ownerAddress"`
	NodeAddress    common.Address `abi:"nodeAddress"`
}

type User struct {
	Addr             common.Address   `abi:"addr"`
	AvailableBalance *big.Int         `abi:"availableBalance"`
	TotalBalance     *big.Int         `abi:"totalBalance"`
	InferenceNodes   []common.Address `abi:"inferenceNodes"`
}

type Account struct {
	User    common.Address `abi:"user"`
	Node    common.Address `abi:"node"`
	Nonce   *big.Int       `abi:"nonce"`
	Balance *big.Int       `abi:"balance"`
}

type SettlementData struct {
	ID            *big.Int       `abi:"id"`
	User          common.Address `abi:"user"`
	Cost          *big.Int       `abi:"cost"`
	Nonce         *big.Int       `abi:"nonce"`
	UserSignature []byte         `abi:"userSignature"`
}

type SettlementProof struct {
	Signature []byte         `abi:"signature"`
	Data      SettlementData `abi:"data"`
}

// Node and job status codes as stored on the ledger.
const (
	NodeStatusNone    uint8 = 0
	NodeStatusActive  uint8 = 1
	NodeStatusRemoved uint8 = 2

	JobStatusNone      uint8 = 0
	JobStatusRequested uint8 = 1
	JobStatusCompleted uint8 = 2
)
