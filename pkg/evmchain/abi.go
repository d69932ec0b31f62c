package evmchain

// bridgeV2ABI is the BridgeV2 contract interface the operator and canceler
// drive: deposit ingestion, withdrawal approval/cancellation/execution, and
// the registry lookups needed to route a transfer (§9 of the teacher's
// CantonBridge binding generalized to the multi-chain V2 surface).
const bridgeV2ABI = `[
  {"type":"function","name":"getDeposit","stateMutability":"view",
   "inputs":[{"name":"hash","type":"bytes32"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"xChainHashId","type":"bytes32"},
     {"name":"destChain","type":"bytes4"},
     {"name":"srcAccount","type":"bytes32"},
     {"name":"destAccount","type":"bytes32"},
     {"name":"token","type":"bytes32"},
     {"name":"amount","type":"uint128"},
     {"name":"nonce","type":"uint64"},
     {"name":"fee","type":"uint128"},
     {"name":"timestamp","type":"uint64"}]}]},
  {"type":"function","name":"getPendingWithdraw","stateMutability":"view",
   "inputs":[{"name":"hash","type":"bytes32"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"xChainHashId","type":"bytes32"},
     {"name":"srcChain","type":"bytes4"},
     {"name":"srcAccount","type":"bytes32"},
     {"name":"destAccount","type":"bytes32"},
     {"name":"token","type":"bytes32"},
     {"name":"recipient","type":"bytes32"},
     {"name":"amount","type":"uint128"},
     {"name":"nonce","type":"uint64"},
     {"name":"operatorGas","type":"uint128"},
     {"name":"submittedAt","type":"uint64"},
     {"name":"approvedAt","type":"uint64"},
     {"name":"approved","type":"bool"},
     {"name":"cancelled","type":"bool"},
     {"name":"executed","type":"bool"}]}]},
  {"type":"function","name":"getCancelWindow","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint64"}]},
  {"type":"function","name":"getThisChainId","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"bytes4"}]},
  {"type":"function","name":"getDestToken","stateMutability":"view",
   "inputs":[{"name":"srcToken","type":"bytes32"},{"name":"destChain","type":"bytes4"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"getTokenType","stateMutability":"view",
   "inputs":[{"name":"token","type":"bytes32"}],
   "outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"getPendingWithdrawHashes","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"getChainRegistry","stateMutability":"view",
   "inputs":[{"name":"chainId","type":"bytes4"}],
   "outputs":[{"name":"active","type":"bool"}]},
  {"type":"function","name":"hasRole","stateMutability":"view",
   "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"withdrawApprove","stateMutability":"nonpayable",
   "inputs":[{"name":"hash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"withdrawCancel","stateMutability":"nonpayable",
   "inputs":[{"name":"hash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"withdrawExecuteUnlock","stateMutability":"nonpayable",
   "inputs":[{"name":"hash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"withdrawExecuteMint","stateMutability":"nonpayable",
   "inputs":[{"name":"hash","type":"bytes32"}],"outputs":[]},
  {"type":"event","name":"Deposit","anonymous":false,"inputs":[
    {"name":"destChain","type":"bytes4","indexed":true},
    {"name":"destAccount","type":"bytes32","indexed":true},
    {"name":"srcAccount","type":"bytes32","indexed":false},
    {"name":"token","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"nonce","type":"uint64","indexed":false},
    {"name":"fee","type":"uint256","indexed":false}]},
  {"type":"event","name":"WithdrawSubmit","anonymous":false,"inputs":[
    {"name":"hash","type":"bytes32","indexed":true},
    {"name":"srcChain","type":"bytes4","indexed":false},
    {"name":"srcAccount","type":"bytes32","indexed":false},
    {"name":"destAccount","type":"bytes32","indexed":false},
    {"name":"token","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"nonce","type":"uint64","indexed":false},
    {"name":"operatorGas","type":"uint256","indexed":false}]},
  {"type":"event","name":"WithdrawApprove","anonymous":false,"inputs":[
    {"name":"xChainHashId","type":"bytes32","indexed":true}]},
  {"type":"event","name":"WithdrawCancel","anonymous":false,"inputs":[
    {"name":"xChainHashId","type":"bytes32","indexed":true}]},
  {"type":"event","name":"WithdrawExecute","anonymous":false,"inputs":[
    {"name":"xChainHashId","type":"bytes32","indexed":true}]}
]`
