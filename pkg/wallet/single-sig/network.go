package singlesig

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/vulpemventures/go-elements/network"
	"github.com/vulpemventures/go-elements/payment"
)

const (
	NetworkBitcoin        = "bitcoin"
	NetworkBitcoinTestnet = "testnet"
	NetworkBitcoinRegtest = "regtest"
	NetworkLiquid         = "liquid"
	NetworkLiquidTestnet  = "liquid-testnet"
	NetworkLiquidRegtest  = "liquid-regtest"
)

var networks = map[string]networkInfo{
	NetworkBitcoin:        {"m/84'/0'", bitcoinP2WPKH(&chaincfg.MainNetParams)},
	NetworkBitcoinTestnet: {"m/84'/1'", bitcoinP2WPKH(&chaincfg.TestNet3Params)},
	NetworkBitcoinRegtest: {"m/84'/1'", bitcoinP2WPKH(&chaincfg.RegressionNetParams)},
	NetworkLiquid:         {"m/84'/1776'", liquidP2WPKH(&network.Liquid)},
	NetworkLiquidTestnet:  {"m/84'/1'", liquidP2WPKH(&network.Testnet)},
	NetworkLiquidRegtest:  {"m/84'/1'", liquidP2WPKH(&network.Regtest)},
}

type encodeAddressFn func(pubkey *btcec.PublicKey) (string, error)

type networkInfo struct {
	rootPath      string
	encodeAddress encodeAddressFn
}

// SupportedNetworks returns the names of the networks addresses can be
// derived for.
func SupportedNetworks() []string {
	return []string{
		NetworkBitcoin, NetworkBitcoinTestnet, NetworkBitcoinRegtest,
		NetworkLiquid, NetworkLiquidTestnet, NetworkLiquidRegtest,
	}
}

// DefaultRootPath returns the BIP-84 root path for the given network.
func DefaultRootPath(net string) (string, error) {
	info, ok := networks[net]
	if !ok {
		return "", ErrUnknownNetwork
	}
	return info.rootPath, nil
}

func bitcoinP2WPKH(params *chaincfg.Params) encodeAddressFn {
	return func(pubkey *btcec.PublicKey) (string, error) {
		hash := btcutil.Hash160(pubkey.SerializeCompressed())
		addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil
	}
}

// Liquid addresses are always unconfidential, the blinding key is not part
// of the wallet identity.
func liquidP2WPKH(net *network.Network) encodeAddressFn {
	return func(pubkey *btcec.PublicKey) (string, error) {
		return payment.FromPublicKey(pubkey, net, nil).WitnessPubKeyHash()
	}
}
