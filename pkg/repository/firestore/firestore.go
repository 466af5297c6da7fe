package firestore

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CollectionName is the collection holding every key
const CollectionName = "kv"

// Firestore is a KVStore with one document per key.
// Prefix scans filter on kind (the key segment before the first colon) and range over key,
// which needs the composite index created by the migrate command.
type Firestore struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.KVStore = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// kvDoc is the Firestore persistence model
type kvDoc struct {
	Key       string    `firestore:"key"`
	Kind      string    `firestore:"kind"`
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// CollectionID returns the collection name with the configured prefix
func (f *Firestore) CollectionID() string {
	return CollectionID(f.collectionPrefix)
}

// CollectionID returns the kv collection name for prefix
func CollectionID(prefix string) string {
	if prefix != "" {
		return prefix + "_" + CollectionName
	}
	return CollectionName
}

func (f *Firestore) collection() *firestore.CollectionRef {
	return f.client.Collection(f.CollectionID())
}

// Document IDs may not contain '/', so keys are encoded
func docID(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func kindOf(key string) (string, bool) {
	kind, _, found := strings.Cut(key, ":")
	return kind, found
}

func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := f.collection().Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "key not found", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var d kvDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("key", key))
	}
	return d.Value, nil
}

func (f *Firestore) Put(ctx context.Context, key string, value []byte) error {
	kind, _ := kindOf(key)
	d := &kvDoc{
		Key:       key,
		Kind:      kind,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := f.collection().Doc(docID(key)).Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to set document", goerr.V("key", key))
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, key string) error {
	if _, err := f.collection().Doc(docID(key)).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete document", goerr.V("key", key))
	}
	return nil
}

func (f *Firestore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	q := f.collection().Query
	if kind, ok := kindOf(prefix); ok {
		q = q.Where("kind", "==", kind)
	}
	q = q.Where("key", ">=", prefix).
		Where("key", "<", prefix+"\uf8ff").
		OrderBy("key", firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate documents", goerr.V("prefix", prefix))
		}

		var d kvDoc
		if err := doc.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal document", goerr.V("id", doc.Ref.ID))
		}
		if !strings.HasPrefix(d.Key, prefix) {
			continue
		}
		if err := fn(d.Key, d.Value); err != nil {
			return err
		}
	}
	return nil
}

func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
