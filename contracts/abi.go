package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DataRegistryABI describes the file registry contract.
const DataRegistryABI = `[
  {"type":"function","name":"addFile","stateMutability":"nonpayable",
   "inputs":[{"name":"url","type":"string"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"addFileWithPermissions","stateMutability":"nonpayable",
   "inputs":[{"name":"url","type":"string"},{"name":"ownerAddress","type":"address"},
     {"name":"permissions","type":"tuple[]","components":[
       {"name":"account","type":"address"},{"name":"key","type":"string"}]}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"addPermissionForFile","stateMutability":"nonpayable",
   "inputs":[{"name":"fileId","type":"uint256"},{"name":"account","type":"address"},{"name":"key","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"getFile","stateMutability":"view",
   "inputs":[{"name":"fileId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"id","type":"uint256"},{"name":"ownerAddress","type":"address"},{"name":"url","type":"string"},
     {"name":"proofsCount","type":"uint256"},{"name":"addedTimestamp","type":"uint256"}]}]},
  {"type":"function","name":"getFileIdByUrl","stateMutability":"view",
   "inputs":[{"name":"url","type":"string"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getFilePermission","stateMutability":"view",
   "inputs":[{"name":"fileId","type":"uint256"},{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getFileProof","stateMutability":"view",
   "inputs":[{"name":"fileId","type":"uint256"},{"name":"index","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"signature","type":"bytes"},
     {"name":"data","type":"tuple","components":[
       {"name":"id","type":"uint256"},{"name":"fileUrl","type":"string"},{"name":"proofUrl","type":"string"}]}]}]},
  {"type":"function","name":"filesCount","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"addProof","stateMutability":"nonpayable",
   "inputs":[{"name":"fileId","type":"uint256"},
     {"name":"proof","type":"tuple","components":[
       {"name":"signature","type":"bytes"},
       {"name":"data","type":"tuple","components":[
         {"name":"id","type":"uint256"},{"name":"fileUrl","type":"string"},{"name":"proofUrl","type":"string"}]}]}],
   "outputs":[]},
  {"type":"function","name":"requestReward","stateMutability":"nonpayable",
   "inputs":[{"name":"fileId","type":"uint256"},{"name":"proofIndex","type":"uint256"}],
   "outputs":[]},
  {"type":"event","name":"FileAdded","anonymous":false,
   "inputs":[{"name":"fileId","type":"uint256","indexed":true},{"name":"ownerAddress","type":"address","indexed":true},{"name":"url","type":"string","indexed":false}]},
  {"type":"event","name":"PermissionGranted","anonymous":false,
   "inputs":[{"name":"fileId","type":"uint256","indexed":true},{"name":"account","type":"address","indexed":true}]},
  {"type":"event","name":"ProofAdded","anonymous":false,
   "inputs":[{"name":"fileId","type":"uint256","indexed":true},{"name":"ownerAddress","type":"address","indexed":true},{"name":"proofIndex","type":"uint256","indexed":false},{"name":"proofUrl","type":"string","indexed":false}]},
  {"type":"event","name":"RewardRequested","anonymous":false,
   "inputs":[{"name":"fileId","type":"uint256","indexed":true},{"name":"proofIndex","type":"uint256","indexed":false},{"name":"nodeAddress","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

// VerifiedComputingABI describes the node registry and job contract.
const VerifiedComputingABI = `[
  {"type":"function","name":"addNode","stateMutability":"nonpayable",
   "inputs":[{"name":"nodeAddress","type":"address"},{"name":"url","type":"string"},{"name":"publicKey","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"removeNode","stateMutability":"nonpayable",
   "inputs":[{"name":"nodeAddress","type":"address"}],"outputs":[]},
  {"type":"function","name":"updateNodeFee","stateMutability":"nonpayable",
   "inputs":[{"name":"fee","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getNode","stateMutability":"view",
   "inputs":[{"name":"nodeAddress","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"nodeAddress","type":"address"},{"name":"url","type":"string"},{"name":"status","type":"uint8"},
     {"name":"fee","type":"uint256"},{"name":"jobsCount","type":"uint256"},{"name":"publicKey","type":"string"}]}]},
  {"type":"function","name":"nodeList","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"nodeListAt","stateMutability":"view",
   "inputs":[{"name":"index","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"nodeAddress","type":"address"},{"name":"url","type":"string"},{"name":"status","type":"uint8"},
     {"name":"fee","type":"uint256"},{"name":"jobsCount","type":"uint256"},{"name":"publicKey","type":"string"}]}]},
  {"type":"function","name":"nodesCount","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"isNode","stateMutability":"view",
   "inputs":[{"name":"nodeAddress","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"requestProof","stateMutability":"payable",
   "inputs":[{"name":"fileId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"completeJob","stateMutability":"nonpayable",
   "inputs":[{"name":"jobId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getJob","stateMutability":"view",
   "inputs":[{"name":"jobId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"fileId","type":"uint256"},{"name":"bidAmount","type":"uint256"},{"name":"status","type":"uint8"},
     {"name":"addedTimestamp","type":"uint256"},{"name":"ownerAddress","type":"address"},{"name":"nodeAddress","type":"address"}]}]},
  {"type":"function","name":"fileJobIds","stateMutability":"view",
   "inputs":[{"name":"fileId","type":"uint256"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"jobsCount","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"NodeAdded","anonymous":false,
   "inputs":[{"name":"nodeAddress","type":"address","indexed":true}]},
  {"type":"event","name":"NodeRemoved","anonymous":false,
   "inputs":[{"name":"nodeAddress","type":"address","indexed":true}]},
  {"type":"event","name":"JobSubmitted","anonymous":false,
   "inputs":[{"name":"jobId","type":"uint256","indexed":true},{"name":"fileId","type":"uint256","indexed":true},{"name":"nodeAddress","type":"address","indexed":false},{"name":"bidAmount","type":"uint256","indexed":false}]},
  {"type":"event","name":"JobComplete","anonymous":false,
   "inputs":[{"name":"attestator","type":"address","indexed":true},{"name":"jobId","type":"uint256","indexed":true},{"name":"fileId","type":"uint256","indexed":true}]}
]`

// SettlementABI describes the balance and inference settlement contract.
const SettlementABI = `[
  {"type":"function","name":"addUser","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"depositInference","stateMutability":"nonpayable",
   "inputs":[{"name":"node","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"retrieveInference","stateMutability":"nonpayable",
   "inputs":[{"name":"nodes","type":"address[]"}],"outputs":[]},
  {"type":"function","name":"getUser","stateMutability":"view",
   "inputs":[{"name":"addr","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"addr","type":"address"},{"name":"availableBalance","type":"uint256"},
     {"name":"totalBalance","type":"uint256"},{"name":"inferenceNodes","type":"address[]"}]}]},
  {"type":"function","name":"getAccount","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"},{"name":"node","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"user","type":"address"},{"name":"node","type":"address"},
     {"name":"nonce","type":"uint256"},{"name":"balance","type":"uint256"}]}]},
  {"type":"function","name":"settlementFees","stateMutability":"nonpayable",
   "inputs":[{"name":"proof","type":"tuple","components":[
     {"name":"signature","type":"bytes"},
     {"name":"data","type":"tuple","components":[
       {"name":"id","type":"uint256"},{"name":"user","type":"address"},{"name":"cost","type":"uint256"},
       {"name":"nonce","type":"uint256"},{"name":"userSignature","type":"bytes"}]}]}],
   "outputs":[]},
  {"type":"event","name":"Deposited","anonymous":false,
   "inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"InferenceDeposited","anonymous":false,
   "inputs":[{"name":"user","type":"address","indexed":true},{"name":"node","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"FeesSettled","anonymous":false,
   "inputs":[{"name":"user","type":"address","indexed":true},{"name":"node","type":"address","indexed":true},{"name":"cost","type":"uint256","indexed":false},{"name":"nonce","type":"uint256","indexed":false}]}
]`

var (
	// DataRegistry is the parsed DataRegistryABI.
	DataRegistry = mustParse(DataRegistryABI)
	// VerifiedComputing is the parsed VerifiedComputingABI.
	VerifiedComputing = mustParse(VerifiedComputingABI)
	// Settlement is the parsed SettlementABI.
	Settlement = mustParse(SettlementABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contracts: invalid ABI: " + err.Error())
	}
	return parsed
}
