package ethutils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const SignatureLength = 65

var (
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidSignatureV      = errors.New("invalid signature v value")
	ErrZeroSigner             = errors.New("signature recovers to zero address")
)

func HexToPrivKey(key string) (*ecdsa.PrivateKey, []byte, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "0x")
	data, err := hex.DecodeString(key)
	if err != nil {
		return nil, nil, err
	}
	privKey, err := crypto.ToECDSA(data)
	return privKey, data, err
}

func PrivKeyToAddr(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// EthSignHash is keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func EthSignHash(msg []byte) []byte {
	return accounts.TextHash(msg)
}

// SignMessage signs msg with eth_sign framing and returns a 65-byte signature whose
// recovery id is 27 or 28, the form ecrecover expects.
func SignMessage(key *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(EthSignHash(msg), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverSigner returns the address which signed msg with eth_sign framing.
// Recovery ids 0/1 and 27/28 are both accepted.
func RecoverSigner(msg []byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrInvalidSignatureLength
	}
	s := make([]byte, SignatureLength)
	copy(s, sig)
	if s[64] >= 27 {
		s[64] -= 27
	}
	if s[64] != 0 && s[64] != 1 {
		return common.Address{}, ErrInvalidSignatureV
	}
	pub, err := crypto.SigToPub(EthSignHash(msg), s)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.PubkeyToAddress(*pub)
	if addr == (common.Address{}) {
		return common.Address{}, ErrZeroSigner
	}
	return addr, nil
}
