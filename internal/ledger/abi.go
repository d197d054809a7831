package ledger

const (
	methodWalletOf      = "phonenumberToAddress"
	methodSendToPhone   = "sendMoneyToPhonenumber"
	methodRegisterPhone = "register"
)

// registryABI describes the subset of the PayPhone registry contract in use.
const registryABI = `[
  {
    "type": "function",
    "name": "phonenumberToAddress",
    "stateMutability": "view",
    "inputs": [{"name": "", "type": "uint256"}],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function",
    "name": "sendMoneyToPhonenumber",
    "stateMutability": "payable",
    "inputs": [{"name": "phonenumber", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "register",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "phonenumber", "type": "uint256"}],
    "outputs": []
  }
]`
