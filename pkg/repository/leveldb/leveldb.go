package leveldb

import (
	"bytes"
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a KVStore on an on-disk LevelDB database.
// A database directory can be opened by one process at a time.
type LevelDB struct {
	db        *leveldb.DB
	syncWrite bool
}

var _ interfaces.KVStore = &LevelDB{}

type Option func(*LevelDB)

// WithSyncWrite makes every Put and Delete fsync before returning
func WithSyncWrite(sync bool) Option {
	return func(l *LevelDB) {
		l.syncWrite = sync
	}
}

// New opens or creates the database at path
func New(path string, opts ...Option) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open leveldb", goerr.V("path", path))
	}

	l := &LevelDB{db: db}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

func (l *LevelDB) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: l.syncWrite}
}

func (l *LevelDB) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "key not found", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get from leveldb", goerr.V("key", key))
	}
	return v, nil
}

func (l *LevelDB) Put(ctx context.Context, key string, value []byte) error {
	if err := l.db.Put([]byte(key), value, l.writeOptions()); err != nil {
		return goerr.Wrap(err, "failed to put to leveldb", goerr.V("key", key))
	}
	return nil
}

func (l *LevelDB) Delete(ctx context.Context, key string) error {
	if err := l.db.Delete([]byte(key), l.writeOptions()); err != nil {
		return goerr.Wrap(err, "failed to delete from leveldb", goerr.V("key", key))
	}
	return nil
}

func (l *LevelDB) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "scan interrupted", goerr.V("prefix", prefix))
		}
		// Key and Value are only valid until the next call to Next
		if err := fn(string(iter.Key()), bytes.Clone(iter.Value())); err != nil {
			return err
		}
	}

	if err := iter.Error(); err != nil {
		return goerr.Wrap(err, "failed to iterate leveldb", goerr.V("prefix", prefix))
	}
	return nil
}

func (l *LevelDB) Close() error {
	if err := l.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close leveldb")
	}
	return nil
}
