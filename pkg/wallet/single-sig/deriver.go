package singlesig

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/vulpemventures/keeper/pkg/wallet/mnemonic"
	path "github.com/vulpemventures/keeper/pkg/wallet/derivation-path"
)

type NewAddressDeriverArgs struct {
	Network  string
	RootPath string
}

func (a NewAddressDeriverArgs) validate() error {
	if a.Network == "" {
		return ErrMissingNetwork
	}
	if _, ok := networks[a.Network]; !ok {
		return ErrUnknownNetwork
	}
	if a.RootPath != "" {
		if _, err := path.ParseRootDerivationPath(a.RootPath); err != nil {
			return err
		}
	}
	return nil
}

// AddressDeriver derives the identifying address of a wallet from its
// mnemonic, ie. the native segwit address at root/0'/0/0.
type AddressDeriver struct {
	network  string
	rootPath path.DerivationPath
	encode   encodeAddressFn
}

// NewAddressDeriver returns a deriver for the given network. The root path
// defaults to the BIP-84 one of the network.
func NewAddressDeriver(args NewAddressDeriverArgs) (*AddressDeriver, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}

	info := networks[args.Network]
	rootPath := args.RootPath
	if rootPath == "" {
		rootPath = info.rootPath
	}
	root, _ := path.ParseRootDerivationPath(rootPath)

	return &AddressDeriver{
		network:  args.Network,
		rootPath: root,
		encode:   info.encodeAddress,
	}, nil
}

func (d *AddressDeriver) Network() string {
	return d.network
}

func (d *AddressDeriver) RootPath() string {
	return d.rootPath.String()
}

// DeriveAddress returns the address of the given normalized mnemonic.
// Invalid mnemonics result in the errors of the mnemonic package.
func (d *AddressDeriver) DeriveAddress(words []string) (string, error) {
	if len(words) <= 0 {
		return "", ErrMissingMnemonic
	}

	seed, err := mnemonic.Seed(words)
	if err != nil {
		return "", err
	}
	defer clear(seed)

	// Net params only affect the serialization of the extended key, never
	// the derived key material.
	hdNode, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}
	defer func() { hdNode.Zero() }()

	derivationPath, err := path.AddressPath(d.rootPath, 0, path.ExternalBranch, 0)
	if err != nil {
		return "", err
	}
	for _, step := range derivationPath {
		child, err := hdNode.Derive(step)
		hdNode.Zero()
		if err != nil {
			return "", err
		}
		hdNode = child
	}

	pubkey, err := hdNode.ECPubKey()
	if err != nil {
		return "", err
	}
	return d.encode(pubkey)
}
