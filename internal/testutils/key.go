package testutils

import (
	"crypto/ecdsa"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartbch/watchtower/internal/ethutils"
)

var TestKeys = []string{
	"0xe3d9be2e6430a9db8291ab1853f5ec2467822b33a1a08825a22fab1425d2bff9",
	"0x5a09e9d6be2cdc7de8f6beba300e52823493cd23357b1ca14a9c36764d600f5e",
	"0x7e01af236f9c9536d9d28b07cea24ccf21e21c9bc9f2b2c11471cd82dbb63162",
	"0x1f67c31733dc3fd02c1f9ce9cb9e05b1d2f1b7b5463fef8acf6cf17f3bd01467",
	"0x8aa75c97b22e743e2d14a0472406f03cc5b4a050e8d4300040002096f50c0c6f",
	"0x84a453fe127ae889de1cfc28590bf5168d2843b50853ab3c5080cd5cf9e18b4b",
	"0x40580320383dbedba7a5305a593ee2c46581a4fd56ff357204c3894e91fbaf48",
	"0x0e3e6ba041d8ad56b0825c549b610e447ec55a72bb90762d281956c56146c4b3",
	"0x867b73f28bea9a0c83dfc233b8c4e51e0d58197de7482ebf666e40dd7947e2b6",
	"0xa3ff378a8d766931575df674fbb1024f09f7072653e1aa91641f310b3e1c5275",
}

// The two channel participants of the monitoring scenarios.
const (
	KeyA = "0x1111111111111111111111111111111111111111111111111111111111111111"
	KeyB = "0x2222222222222222222222222222222222222222222222222222222222222222"
)

// KeyMS is the monitoring service of the scenarios. The sum of its address with the
// addresses of KeyA and KeyB is odd, which puts the first block allowed to monitor a
// channel of A and B two blocks after the close when the settle timeout is 5.
var KeyMS = TestKeys[5]

func GenKeyAndAddr() (string, common.Address) {
	key, _ := crypto.GenerateKey()
	keyHex := hex.EncodeToString(crypto.FromECDSA(key))
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return keyHex, addr
}

func MustHexToPrivKey(key string) *ecdsa.PrivateKey {
	k, _, err := ethutils.HexToPrivKey(key)
	if err != nil {
		panic(err)
	}
	return k
}

func HexKeyToAddr(key string) common.Address {
	return ethutils.PrivKeyToAddr(MustHexToPrivKey(key))
}

func KeysToAddrs(keys ...string) []common.Address {
	addrs := make([]common.Address, len(keys))
	for i, key := range keys {
		addrs[i] = HexKeyToAddr(key)
	}
	return addrs
}
