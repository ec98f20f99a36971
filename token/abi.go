package token

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
				"name": "_owner",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "_spender",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "_value",
				"type": "uint256"
			}
		],
		"name": "Approval",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "address",
				"name": "_from",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "_to",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "_value",
				"type": "uint256"
			}
		],
		"name": "Transfer",
		"type": "event"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "_owner",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "_spender",
				"type": "address"
			}
		],
		"name": "allowance",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "remaining",
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
				"name": "_spender",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "_value",
				"type": "uint256"
			}
		],
		"name": "approve",
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
				"internalType": "address",
				"name": "_owner",
				"type": "address"
			}
		],
		"name": "balanceOf",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "balance",
				"type": "uint256"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [
			{
				"internalType": "uint8",
				"name": "",
				"type": "uint8"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "num",
				"type": "uint256"
			}
		],
		"name": "mint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "num",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "target",
				"type": "address"
			}
		],
		"name": "mintFor",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "name",
		"outputs": [
			{
				"internalType": "string",
				"name": "",
				"type": "string"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "symbol",
		"outputs": [
			{
				"internalType": "string",
				"name": "",
				"type": "string"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalSupply",
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
				"name": "_to",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "_value",
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
				"internalType": "address",
				"name": "_from",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "_to",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "_value",
				"type": "uint256"
			}
		],
		"name": "transferFrom",
		"outputs": [
			{
				"internalType": "bool",
				"name": "success",
				"type": "bool"
			}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]
`)

var (
	SelectorAllowance    = ABI.MethodSelector("allowance")
	SelectorApprove      = ABI.MethodSelector("approve")
	SelectorBalanceOf    = ABI.MethodSelector("balanceOf")
	SelectorDecimals     = ABI.MethodSelector("decimals")
	SelectorMint         = ABI.MethodSelector("mint")
	SelectorMintFor      = ABI.MethodSelector("mintFor")
	SelectorName         = ABI.MethodSelector("name")
	SelectorSymbol       = ABI.MethodSelector("symbol")
	SelectorTotalSupply  = ABI.MethodSelector("totalSupply")
	SelectorTransfer     = ABI.MethodSelector("transfer")
	SelectorTransferFrom = ABI.MethodSelector("transferFrom")
)

func PackMint(num *big.Int) []byte {
	return ABI.MustPack("mint", num)
}

func PackMintFor(num *big.Int, target common.Address) []byte {
	return ABI.MustPack("mintFor", num, target)
}

func PackApprove(spender common.Address, value *big.Int) []byte {
	return ABI.MustPack("approve", spender, value)
}

func PackTransfer(to common.Address, value *big.Int) []byte {
	return ABI.MustPack("transfer", to, value)
}

func PackTransferFrom(from, to common.Address, value *big.Int) []byte {
	return ABI.MustPack("transferFrom", from, to, value)
}

func PackBalanceOf(owner common.Address) []byte {
	return ABI.MustPack("balanceOf", owner)
}

func PackAllowance(owner, spender common.Address) []byte {
	return ABI.MustPack("allowance", owner, spender)
}

func PackTotalSupply() []byte {
	return ABI.MustPack("totalSupply")
}

func UnpackBalance(outData []byte) *big.Int {
	return ABI.MustUnpack("balanceOf", outData)[0].(*big.Int)
}
