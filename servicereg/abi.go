package servicereg

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
				"name": "service",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "valid_till",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "deposit_amount",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "address",
				"name": "deposit_contract",
				"type": "address"
			}
		],
		"name": "RegisteredService",
		"type": "event"
	},
	{
		"inputs": [],
		"name": "currentPrice",
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
				"internalType": "uint256",
				"name": "limit_amount",
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
				"name": "_address",
				"type": "address"
			}
		],
		"name": "hasValidRegistration",
		"outputs": [
			{
				"internalType": "bool",
				"name": "",
				"type": "bool"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "registration_duration",
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
		"name": "service_valid_till",
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
				"internalType": "string",
				"name": "new_url",
				"type": "string"
			}
		],
		"name": "setURL",
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
		"name": "urls",
		"outputs": [
			{
				"internalType": "string",
				"name": "",
				"type": "string"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]
`)

var (
	SelectorCurrentPrice         = ABI.MethodSelector("currentPrice")
	SelectorDeposit              = ABI.MethodSelector("deposit")
	SelectorHasValidRegistration = ABI.MethodSelector("hasValidRegistration")
	SelectorRegistrationDuration = ABI.MethodSelector("registration_duration")
	SelectorServiceValidTill     = ABI.MethodSelector("service_valid_till")
	SelectorSetURL               = ABI.MethodSelector("setURL")
	SelectorToken                = ABI.MethodSelector("token")
	SelectorURLs                 = ABI.MethodSelector("urls")
)

func PackDeposit(limitAmount *big.Int) []byte {
	return ABI.MustPack("deposit", limitAmount)
}

func PackHasValidRegistration(addr common.Address) []byte {
	return ABI.MustPack("hasValidRegistration", addr)
}

func PackServiceValidTill(addr common.Address) []byte {
	return ABI.MustPack("service_valid_till", addr)
}

func PackCurrentPrice() []byte {
	return ABI.MustPack("currentPrice")
}

func PackSetURL(url string) []byte {
	return ABI.MustPack("setURL", url)
}
