package monitoring

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartbch/watchtower/internal/ethutils"
	"github.com/smartbch/watchtower/tokennetwork"
)

// ABI covers both contract kinds; the internals are only dispatched by InternalsExecutor.
var ABI = ethutils.MustParseABI(`
[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": false,
				"internalType": "address",
				"name": "token_network_address",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "channel_identifier",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "reward_amount",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "ms_address",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "raiden_node_address",
				"type": "address"
			}
		],
		"name": "NewBalanceProofReceived",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "address",
				"name": "ms_address",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			},
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "reward_identifier",
				"type": "bytes32"
			}
		],
		"name": "RewardClaimed",
		"type": "event"
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
				"name": "token_network_address",
				"type": "address"
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
			}
		],
		"name": "claimReward",
		"outputs": [
			{
				"internalType": "bool",
				"name": "",
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
				"name": "closed_at_block",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "settle_timeout",
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
			},
			{
				"internalType": "address",
				"name": "monitoring_service_address",
				"type": "address"
			}
		],
		"name": "firstBlockAllowedToMonitor",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "",
				"type": "uint256"
			}
		],
		"stateMutability": "pure",
		"type": "function"
	},
	{
		"inputs": [
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
			},
			{
				"internalType": "uint256",
				"name": "reward_amount",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "token_network_address",
				"type": "address"
			},
			{
				"internalType": "bytes",
				"name": "reward_proof_signature",
				"type": "bytes"
			}
		],
		"name": "monitor",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint256",
				"name": "chain_id",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "token_network_address",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "non_closing_participant",
				"type": "address"
			},
			{
				"internalType": "bytes",
				"name": "non_closing_signature",
				"type": "bytes"
			},
			{
				"internalType": "uint256",
				"name": "reward_amount",
				"type": "uint256"
			},
			{
				"internalType": "bytes",
				"name": "signature",
				"type": "bytes"
			}
		],
		"name": "recoverAddressFromRewardProofPublic",
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
				"internalType": "bytes32",
				"name": "reward_identifier",
				"type": "bytes32"
			}
		],
		"name": "rewardNonce",
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
				"internalType": "bytes32",
				"name": "",
				"type": "bytes32"
			}
		],
		"name": "rewards",
		"outputs": [
			{
				"internalType": "uint256",
				"name": "reward_amount",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "reward_sender_address",
				"type": "address"
			},
			{
				"internalType": "address",
				"name": "monitoring_service_address",
				"type": "address"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "service_registry",
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
				"internalType": "address",
				"name": "token_network_address",
				"type": "address"
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
				"internalType": "uint256",
				"name": "reward_amount",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "nonce",
				"type": "uint256"
			},
			{
				"internalType": "address",
				"name": "monitoring_service_address",
				"type": "address"
			},
			{
				"internalType": "bytes",
				"name": "non_closing_signature",
				"type": "bytes"
			},
			{
				"internalType": "bytes",
				"name": "reward_proof_signature",
				"type": "bytes"
			}
		],
		"name": "updateRewardPublic",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "user_deposit",
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
	SelectorClaimReward                         = ABI.MethodSelector("claimReward")
	SelectorFirstBlockAllowedToMonitor          = ABI.MethodSelector("firstBlockAllowedToMonitor")
	SelectorMonitor                             = ABI.MethodSelector("monitor")
	SelectorRecoverAddressFromRewardProofPublic = ABI.MethodSelector("recoverAddressFromRewardProofPublic")
	SelectorRewardNonce                         = ABI.MethodSelector("rewardNonce")
	SelectorRewards                             = ABI.MethodSelector("rewards")
	SelectorServiceRegistry                     = ABI.MethodSelector("service_registry")
	SelectorToken                               = ABI.MethodSelector("token")
	SelectorTokenNetworkRegistry                = ABI.MethodSelector("token_network_registry")
	SelectorUpdateRewardPublic                  = ABI.MethodSelector("updateRewardPublic")
	SelectorUserDeposit                         = ABI.MethodSelector("user_deposit")
)

// PackMonitor takes the closing participant's balance proof, signed by it, and the
// non-closing participant's countersignature of type MessageTypeBalanceProofUpdate.
func PackMonitor(closing, nonClosing common.Address, bp *tokennetwork.BalanceProof, closingSig, nonClosingSig []byte,
	rewardAmount *big.Int, tokenNetwork common.Address, rewardProofSig []byte) []byte {
	return ABI.MustPack("monitor", closing, nonClosing, [32]byte(bp.BalanceHash), bp.Nonce.ToBig(),
		[32]byte(bp.AdditionalHash), closingSig, nonClosingSig, rewardAmount, tokenNetwork, rewardProofSig)
}

func PackClaimReward(channelID *big.Int, tokenNetwork, closing, nonClosing common.Address) []byte {
	return ABI.MustPack("claimReward", channelID, tokenNetwork, closing, nonClosing)
}

func PackFirstBlockAllowedToMonitor(closedAtBlock, settleTimeout *big.Int, participant1, participant2, ms common.Address) []byte {
	return ABI.MustPack("firstBlockAllowedToMonitor", closedAtBlock, settleTimeout, participant1, participant2, ms)
}

func PackUpdateRewardPublic(tokenNetwork, closing, nonClosing common.Address, rewardAmount, nonce *big.Int,
	ms common.Address, nonClosingSig, rewardProofSig []byte) []byte {
	return ABI.MustPack("updateRewardPublic", tokenNetwork, closing, nonClosing, rewardAmount, nonce,
		ms, nonClosingSig, rewardProofSig)
}

func PackRecoverAddressFromRewardProofPublic(chainID *big.Int, tokenNetwork, nonClosing common.Address,
	nonClosingSig []byte, rewardAmount *big.Int, signature []byte) []byte {
	return ABI.MustPack("recoverAddressFromRewardProofPublic", chainID, tokenNetwork, nonClosing,
		nonClosingSig, rewardAmount, signature)
}

func PackRewardNonce(rewardID common.Hash) []byte {
	return ABI.MustPack("rewardNonce", [32]byte(rewardID))
}

func PackRewards(rewardID common.Hash) []byte {
	return ABI.MustPack("rewards", [32]byte(rewardID))
}

func UnpackUint(method string, outData []byte) *big.Int {
	return ABI.MustUnpack(method, outData)[0].(*big.Int)
}
