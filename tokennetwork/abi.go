package tokennetwork

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
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "closing_participant",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "bytes32",
				"name": "balance_hash",
				"type": "bytes32"
			}
		],
		"name": "ChannelClosed",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "participant",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "total_deposit",
				"type": "uint256"
			}
		],
		"name": "ChannelNewDeposit",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "participant1",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "participant2",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "settle_timeout",
				"type": "uint256"
			}
		],
		"name": "ChannelOpened",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "address",
				"name": "participant1",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "participant1_amount",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "bytes32",
				"name": "participant1_locksroot",
				"type": "bytes32"
			},
			{
				"indexed": false,
				"internalType": "address",
				"name": "participant2",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "participant2_amount",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "bytes32",
				"name": "participant2_locksroot",
				"type": "bytes32"
			}
		],
		"name": "ChannelSettled",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "closing_participant",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "bytes32",
				"name": "balance_hash",
				"type": "bytes32"
			}
		],
		"name": "NonClosingBalanceProofUpdated",
		"type": "event"
	},
	{
		"inputs": [],
		"name": "chain_id",
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
		"inputs": [],
		"name": "channel_counter",
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
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "non_closing_participant",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "closing_participant",
				"type": "address"
			},
			{
				"internalType": "bytes32",
				"name": "balance_hash",
				"type": "bytes32"
			},
			{
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"internalType": "bytes32",
				"name": "additional_hash",
				"type": "bytes32"
			},
			{
				"internalType": "bytes",
				"name": "non_closing_signature",
				"type": "bytes"
			},
			{
				"internalType": "bytes",
				"name": "closing_signature",
				"type": "bytes"
			}
		],
		"name": "closeChannel",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "participant",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "partner",
				"type": "address"
			}
		],
		"name": "getChannelIdentifier",
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
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "participant1",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "participant2",
				"type": "address"
			}
		],
		"name": "getChannelInfo",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "",
				"type": "uint256"
			},
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
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "participant",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "partner",
				"type": "address"
			}
		],
		"name": "getChannelParticipantInfo",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "deposit",
				"type": "uint256"
			},
			{
				"internalType": "bool",
				"name": "is_the_closer",
				"type": "bool"
			},
			{
				"internalType": "bytes32",
				"name": "balance_hash",
				"type": "bytes32"
			},
			{
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "locked_amount",
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
				"name": "participant1",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "participant2",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "settle_timeout",
				"type": "uint256"
			}
		],
		"name": "openChannel",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "",
				"type": "uint256"
			}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "participant",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "total_deposit",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "partner",
				"type": "address"
			}
		],
		"name": "setTotalDeposit",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "participant1",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "participant1_transferred_amount",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "participant1_locked_amount",
				"type": "uint256"
			},
			{
				"internalType": "bytes32",
				"name": "participant1_locksroot",
				"type": "bytes32"
			},
			{
				"internalType": "address",
				"name": "participant2",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "participant2_transferred_amount",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "participant2_locked_amount",
				"type": "uint256"
			},
			{
				"internalType": "bytes32",
				"name": "participant2_locksroot",
				"type": "bytes32"
			}
		],
		"name": "settleChannel",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "settlement_timeout_max",
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
		"inputs": [],
		"name": "settlement_timeout_min",
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
		"inputs": [],
		"name": "token_network_registry",
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
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "closing_participant",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "non_closing_participant",
				"type": "address"
			},
			{
				"internalType": "bytes32",
				"name": "balance_hash",
				"type": "bytes32"
			},
			{
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"internalType": "bytes32",
				"name": "additional_hash",
				"type": "bytes32"
			},
			{
				"internalType": "bytes",
				"name": "closing_signature",
				"type": "bytes"
			},
			{
				"internalType": "bytes",
				"name": "non_closing_signature",
				"type": "bytes"
			}
		],
		"name": "updateNonClosingBalanceProof",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]
`)

var RegistryABI = ethutils.MustParseABI(`
[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "address",
				"name": "token_address",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "token_network_address",
				"type": "address"
			}
		],
		"name": "TokenNetworkCreated",
		"type": "event"
	},
	{
		"inputs": [],
		"name": "chain_id",
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
				"name": "_token_address",
				"type": "address"
			}
		],
		"name": "createERC20TokenNetwork",
		"outputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "settlement_timeout_max",
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
		"inputs": [],
		"name": "settlement_timeout_min",
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
		"inputs": [],
		"name": "token_network_created",
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
		"name": "token_to_token_networks",
		"outputs": [
			{
				"internalType": "address",
				"name": "",
				"type": "address"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]
`)

var (
	SelectorChainID                      = ABI.MethodSelector("chain_id")
	SelectorChannelCounter               = ABI.MethodSelector("channel_counter")
	SelectorCloseChannel                 = ABI.MethodSelector("closeChannel")
	SelectorGetChannelIdentifier         = ABI.MethodSelector("getChannelIdentifier")
	SelectorGetChannelInfo               = ABI.MethodSelector("getChannelInfo")
	SelectorGetChannelParticipantInfo    = ABI.MethodSelector("getChannelParticipantInfo")
	SelectorOpenChannel                  = ABI.MethodSelector("openChannel")
	SelectorSetTotalDeposit              = ABI.MethodSelector("setTotalDeposit")
	SelectorSettleChannel                = ABI.MethodSelector("settleChannel")
	SelectorSettlementTimeoutMax         = ABI.MethodSelector("settlement_timeout_max")
	SelectorSettlementTimeoutMin         = ABI.MethodSelector("settlement_timeout_min")
	SelectorToken                        = ABI.MethodSelector("token")
	SelectorTokenNetworkRegistry         = ABI.MethodSelector("token_network_registry")
	SelectorUpdateNonClosingBalanceProof = ABI.MethodSelector("updateNonClosingBalanceProof")

	SelectorRegistryChainID              = RegistryABI.MethodSelector("chain_id")
	SelectorCreateERC20TokenNetwork      = RegistryABI.MethodSelector("createERC20TokenNetwork")
	SelectorRegistrySettlementTimeoutMax = RegistryABI.MethodSelector("settlement_timeout_max")
	SelectorRegistrySettlementTimeoutMin = RegistryABI.MethodSelector("settlement_timeout_min")
	SelectorTokenNetworkCreated          = RegistryABI.MethodSelector("token_network_created")
	SelectorTokenToTokenNetworks         = RegistryABI.MethodSelector("token_to_token_networks")
)

func PackCreateERC20TokenNetwork(tokenAddr common.Address) []byte {
	return RegistryABI.MustPack("createERC20TokenNetwork", tokenAddr)
}

func PackTokenToTokenNetworks(tokenAddr common.Address) []byte {
	return RegistryABI.MustPack("token_to_token_networks", tokenAddr)
}

func PackOpenChannel(participant1, participant2 common.Address, settleTimeout uint64) []byte {
	return ABI.MustPack("openChannel", participant1, participant2, new(big.Int).SetUint64(settleTimeout))
}

func PackSetTotalDeposit(channelID *big.Int, participant common.Address, totalDeposit *big.Int, partner common.Address) []byte {
	return ABI.MustPack("setTotalDeposit", channelID, participant, totalDeposit, partner)
}

// PackCloseChannel takes the balance proof of the non-closing participant, signed by it,
// and the closing participant's signature over that proof.
func PackCloseChannel(bp *BalanceProof, nonClosing, closing common.Address, nonClosingSig, closingSig []byte) []byte {
	return ABI.MustPack("closeChannel", bp.ChannelID.ToBig(), nonClosing, closing,
		[32]byte(bp.BalanceHash), bp.Nonce.ToBig(), [32]byte(bp.AdditionalHash), nonClosingSig, closingSig)
}

// PackUpdateNonClosingBalanceProof takes the balance proof of the closing participant,
// signed by it, and the non-closing participant's signature over that proof.
func PackUpdateNonClosingBalanceProof(bp *BalanceProof, closing, nonClosing common.Address, closingSig, nonClosingSig []byte) []byte {
	return ABI.MustPack("updateNonClosingBalanceProof", bp.ChannelID.ToBig(), closing, nonClosing,
		[32]byte(bp.BalanceHash), bp.Nonce.ToBig(), [32]byte(bp.AdditionalHash), closingSig, nonClosingSig)
}

// SettleData is what a participant reveals about its own balance proof at settlement.
type SettleData struct {
	Participant common.Address
	Transferred *big.Int
	Locked      *big.Int
	Locksroot   common.Hash
}

func PackSettleChannel(channelID *big.Int, p1, p2 SettleData) []byte {
	return ABI.MustPack("settleChannel", channelID,
		p1.Participant, p1.Transferred, p1.Locked, [32]byte(p1.Locksroot),
		p2.Participant, p2.Transferred, p2.Locked, [32]byte(p2.Locksroot))
}

func PackGetChannelIdentifier(participant, partner common.Address) []byte {
	return ABI.MustPack("getChannelIdentifier", participant, partner)
}

func PackGetChannelInfo(channelID *big.Int, participant1, participant2 common.Address) []byte {
	return ABI.MustPack("getChannelInfo", channelID, participant1, participant2)
}

func PackGetChannelParticipantInfo(channelID *big.Int, participant, partner common.Address) []byte {
	return ABI.MustPack("getChannelParticipantInfo", channelID, participant, partner)
}

// UnpackChannelInfo decodes the (settle_block_number, state) pair.
func UnpackChannelInfo(outData []byte) (*big.Int, uint8) {
	res := ABI.MustUnpack("getChannelInfo", outData)
	return res[0].(*big.Int), res[1].(uint8)
}
