package cloudetcd

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/ports"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
)

const (
	ProviderName = "etcd"

	defaultDialTimeout = 10 * time.Second
	dirMarker          = "/"
)

var (
	ErrMissingEndpoints = fmt.Errorf("missing etcd endpoints")
	ErrInvalidAccountID = fmt.Errorf("invalid account id")
	ErrObjectNotFound   = fmt.Errorf("object not found")
	ErrInvalidPath      = fmt.Errorf("invalid path")
)

type StoreFactoryOpts struct {
	Endpoints   []string
	DialTimeout time.Duration
	// Prefix is prepended to every account namespace.
	Prefix string
}

func (o StoreFactoryOpts) validate() error {
	if len(o.Endpoints) <= 0 {
		return ErrMissingEndpoints
	}
	return nil
}

type storeFactory struct {
	opts StoreFactoryOpts
}

// NewStoreFactory returns a factory of stores backed by a remote etcd
// cluster. Every store authenticates with the username and secret of the
// credential and sees only the keys of its account.
func NewStoreFactory(opts StoreFactoryOpts) (ports.CloudObjectStoreFactory, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	return &storeFactory{opts}, nil
}

func (f *storeFactory) Provider() string {
	return ProviderName
}

func (f *storeFactory) NewStore(
	ctx context.Context, cred *ports.CloudCredential,
) (ports.CloudObjectStore, error) {
	if cred == nil || cred.AccountID == "" || strings.Contains(cred.AccountID, "/") {
		return nil, ErrInvalidAccountID
	}

	cli, err := clientv3.New(clientv3.Config{
		Context:     ctx,
		Endpoints:   f.opts.Endpoints,
		DialTimeout: f.opts.DialTimeout,
		Username:    cred.Username,
		Password:    cred.Secret,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to etcd: %w", err)
	}

	kv := namespace.NewKV(cli.KV, accountPrefix(f.opts.Prefix, cred.AccountID))
	return newStore(cli, kv), nil
}

// NewStoreWithKV returns a store on top of an already namespaced kv client.
func NewStoreWithKV(kv clientv3.KV) ports.CloudObjectStore {
	return newStore(nil, kv)
}

type store struct {
	cli *clientv3.Client
	kv  clientv3.KV

	log func(format string, a ...interface{})
}

func newStore(cli *clientv3.Client, kv clientv3.KV) *store {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("cloud etcd: %s", format)
		log.Debugf(format, a...)
	}
	return &store{cli, kv, logFn}
}

func (s *store) Ping(ctx context.Context) error {
	if s.cli != nil {
		endpoints := s.cli.Endpoints()
		if len(endpoints) <= 0 {
			return ErrMissingEndpoints
		}
		_, err := s.cli.Status(ctx, endpoints[0])
		return err
	}
	_, err := s.kv.Get(ctx, dirMarker)
	return err
}

func (s *store) Exists(ctx context.Context, path string) (bool, error) {
	key, err := toKey(path)
	if err != nil {
		return false, err
	}
	// A directory exists as a marker key, see Mkdir.
	for _, k := range []string{key, key + dirMarker} {
		resp, err := s.kv.Get(ctx, k)
		if err != nil {
			return false, err
		}
		if len(resp.Kvs) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *store) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := toKey(path)
	if err != nil {
		return nil, err
	}
	resp, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) <= 0 {
		return nil, ErrObjectNotFound
	}
	return resp.Kvs[0].Value, nil
}

// Write is a single Put, atomic by nature.
func (s *store) Write(ctx context.Context, path string, data []byte) error {
	key, err := toKey(path)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, key, string(data)); err != nil {
		return err
	}
	s.log("written %s", path)
	return nil
}

// Mkdir writes a marker key for the directory, etcd has a flat key space.
func (s *store) Mkdir(ctx context.Context, path string) error {
	key, err := toKey(path)
	if err != nil {
		return err
	}
	_, err = s.kv.Put(ctx, key+dirMarker, "")
	return err
}

// Sync refreshes the cluster endpoints, if connected, then issues a
// linearizable read of the path.
func (s *store) Sync(ctx context.Context, path string) error {
	if s.cli != nil {
		if err := s.cli.Sync(ctx); err != nil {
			return err
		}
	}
	key, err := toKey(path)
	if err != nil {
		return err
	}
	_, err = s.kv.Get(ctx, key)
	return err
}

func (s *store) Close() error {
	if s.cli != nil {
		return s.cli.Close()
	}
	return nil
}

func accountPrefix(prefix, accountID string) string {
	return fmt.Sprintf("%s/%s/", strings.TrimSuffix(prefix, "/"), accountID)
}

func toKey(path string) (string, error) {
	key := strings.Trim(path, "/")
	if key == "" {
		return "", ErrInvalidPath
	}
	return key, nil
}
