package userdeposit

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartbch/watchtower/internal/ethutils"
)

var ABI = ethutils.MustParseABI(`
[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "address",
				"name": "owner",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "newBalance",
				"type": "uint256"
			}
		],
		"name": "BalanceReduced",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "address",
				"name": "withdrawer",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "plannedBalance",
				"type": "uint256"
			}
		],
		"name": "WithdrawPlanned",
		"type": "event"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"name": "balances",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "",
				"type": "uint256"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "beneficiary",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "new_total_deposit",
				"type": "uint256"
			}
		],
		"name": "deposit",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "owner",
				"type": "address"
			}
		],
		"name": "effectiveBalance",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "remaining_balance",
				"type": "uint256"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "_msc_address",
				"type": "address"
			}
		],
		"name": "init",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "msc_address",
		"outputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			}
		],
		"name": "planWithdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token",
		"outputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"name": "total_deposit",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "",
				"type": "uint256"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "sender",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "receiver",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			}
		],
		"name": "transfer",
		"outputs": [
			{
				"internalType": "bool",
				"name": "success",
				"type": "bool"
			}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			}
		],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "withdraw_delay",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "",
				"type": "uint256"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"name": "withdraw_plans",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "withdraw_block",
				"type": "uint256"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]
`)

var (
	SelectorBalances         = ABI.MethodSelector("balances")
	SelectorDeposit          = ABI.MethodSelector("deposit")
	SelectorEffectiveBalance = ABI.MethodSelector("effectiveBalance")
	SelectorInit             = ABI.MethodSelector("init")
	SelectorMscAddress       = ABI.MethodSelector("msc_address")
	SelectorPlanWithdraw     = ABI.MethodSelector("planWithdraw")
	SelectorToken            = ABI.MethodSelector("token")
	SelectorTotalDeposit     = ABI.MethodSelector("total_deposit")
	SelectorTransfer         = ABI.MethodSelector("transfer")
	SelectorWithdraw         = ABI.MethodSelector("withdraw")
	SelectorWithdrawDelay    = ABI.MethodSelector("withdraw_delay")
	SelectorWithdrawPlans    = ABI.MethodSelector("withdraw_plans")
)

func PackInit(msc common.Address) []byte {
	return ABI.MustPack("init", msc)
}

func PackDeposit(beneficiary common.Address, newTotalDeposit *big.Int) []byte {
	return ABI.MustPack("deposit", beneficiary, newTotalDeposit)
}

func PackTransfer(sender, receiver common.Address, amount *big.Int) []byte {
	return ABI.MustPack("transfer", sender, receiver, amount)
}

func PackPlanWithdraw(amount *big.Int) []byte {
	return ABI.MustPack("planWithdraw", amount)
}

func PackWithdraw(amount *big.Int) []byte {
	return ABI.MustPack("withdraw", amount)
}

func PackBalances(owner common.Address) []byte {
	return ABI.MustPack("balances", owner)
}

func PackTotalDeposit(owner common.Address) []byte {
	return ABI.MustPack("total_deposit", owner)
}

func PackEffectiveBalance(owner common.Address) []byte {
	return ABI.MustPack("effectiveBalance", owner)
}

func UnpackUint(method string, outData []byte) *big.Int {
	return ABI.MustUnpack(method, outData)[0].(*big.Int)
}
