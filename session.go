package redisidentity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const saveChangesMaxRetries = 4

// DocumentSession is a unit of work over the document store. Loads register
// the document for change tracking; mutations to a loaded document are
// deferred until SaveChanges. Insert is the exception: it races for a key
// immediately with a conditional put, because its whole purpose is to claim
// a unique natural identifier before the aggregate-level save commits.
//
// A session is not safe for concurrent use. It holds no connection of its
// own; the Redis client passed to NewDocumentSession stays owned by the
// caller.
type DocumentSession interface {
	// Load reads the document at key into doc and tracks it. A missing
	// document is a normal outcome: (false, nil), never an error. Loading a
	// key that is already tracked serves the in-session state, so pending
	// mutations stay visible before a flush.
	Load(ctx context.Context, key string, doc any) (bool, error)
	// LoadOwned reads the secondary-key document at key into doc and the
	// document referenced by its userId field into owner, in a single
	// round trip.
	LoadOwned(ctx context.Context, key string, doc, owner any) (found, ownerFound bool, err error)
	// Insert writes doc at key immediately, if and only if the key is
	// absent. A collision surfaces as ErrDuplicateKey. The written document
	// is tracked like a loaded one.
	Insert(ctx context.Context, key string, doc any) error
	// Store tracks a new document for the next SaveChanges. The flush
	// treats it as insert-if-absent.
	Store(key string, doc any) error
	// Delete marks the document at key for deletion at the next SaveChanges.
	Delete(key string)
	// SaveChanges flushes every pending change in one transaction. Tracked
	// documents are re-serialized and only the changed ones are written. A
	// change-vector mismatch on any of them aborts the whole flush with
	// ErrConcurrencyConflict; retry is the caller's responsibility.
	SaveChanges(ctx context.Context) error
	// Query streams the raw documents stored under keyPrefix. Results are
	// not change-tracked. O(n) over the namespace; not for hot paths.
	Query(ctx context.Context, keyPrefix string, fn func(raw json.RawMessage) error) error
	// Close releases the session. The Redis client is left open.
	Close() error
}

// documentEnvelope is the stored form of every document: the payload plus a
// change vector that is replaced on each successful write. Vector comparison
// at flush time is the optimistic concurrency check.
type documentEnvelope struct {
	ChangeVector string          `json:"changeVector"`
	Document     json.RawMessage `json:"document"`
}

type trackedDocument struct {
	doc      any
	vector   string // empty for documents new to this session
	original []byte // serialized form at load time; nil for new documents
}

// loadOwnedLua resolves a secondary-key document together with the user
// document its userId field points at, in one round trip.
var loadOwnedLua = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
  return {}
end
local ok, env = pcall(cjson.decode, raw)
if not ok or type(env) ~= "table" or type(env.document) ~= "table" then
  return redis.error_reply("malformed document envelope")
end
local owner = ""
local ref = env.document.userId
if type(ref) == "string" and ref ~= "" then
  owner = redis.call("GET", ref) or ""
end
return {raw, owner}
`)

type redisSession struct {
	rdb     redis.UniversalClient
	tracked map[string]*trackedDocument
	deleted map[string]struct{}
	closed  bool
}

// NewDocumentSession opens a unit of work backed by the given Redis client.
func NewDocumentSession(rdb redis.UniversalClient) DocumentSession {
	return &redisSession{
		rdb:     rdb,
		tracked: make(map[string]*trackedDocument),
		deleted: make(map[string]struct{}),
	}
}

func (s *redisSession) Load(ctx context.Context, key string, doc any) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	if key == "" {
		return false, fmt.Errorf("%w: document key is required", ErrInvalidArgument)
	}
	if _, gone := s.deleted[key]; gone {
		return false, nil
	}
	if td, ok := s.tracked[key]; ok {
		if err := copyDocument(td.doc, doc); err != nil {
			return false, err
		}
		// The latest loaded instance becomes the tracked one, so mutations
		// through it are picked up at flush time.
		td.doc = doc
		return true, nil
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	env, err := decodeEnvelope(raw, doc)
	if err != nil {
		return false, err
	}
	original, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	s.tracked[key] = &trackedDocument{doc: doc, vector: env.ChangeVector, original: original}
	return true, nil
}

func (s *redisSession) LoadOwned(ctx context.Context, key string, doc, owner any) (bool, bool, error) {
	if s.closed {
		return false, false, ErrSessionClosed
	}
	if key == "" {
		return false, false, fmt.Errorf("%w: document key is required", ErrInvalidArgument)
	}
	if _, gone := s.deleted[key]; gone {
		return false, false, nil
	}

	if td, ok := s.tracked[key]; ok {
		if err := copyDocument(td.doc, doc); err != nil {
			return false, false, err
		}
		td.doc = doc
		return s.resolveOwner(ctx, doc, owner)
	}

	res, err := loadOwnedLua.Run(ctx, s.rdb, []string{key}).Result()
	if err != nil {
		return false, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	parts, ok := res.([]interface{})
	if !ok {
		return false, false, fmt.Errorf("%w: unexpected include reply", ErrStoreUnavailable)
	}
	if len(parts) == 0 {
		return false, false, nil
	}

	raw, err := luaBulkString(parts[0])
	if err != nil {
		return false, false, err
	}
	env, err := decodeEnvelope([]byte(raw), doc)
	if err != nil {
		return false, false, err
	}
	original, err := json.Marshal(doc)
	if err != nil {
		return false, false, err
	}
	s.tracked[key] = &trackedDocument{doc: doc, vector: env.ChangeVector, original: original}

	ref, err := ownerReference(doc)
	if err != nil {
		return false, false, err
	}
	if ref == "" {
		return true, false, nil
	}

	// The in-session state wins over the snapshot the script fetched.
	if td, tracked := s.tracked[ref]; tracked {
		if _, gone := s.deleted[ref]; gone {
			return true, false, nil
		}
		if err := copyDocument(td.doc, owner); err != nil {
			return true, false, err
		}
		td.doc = owner
		return true, true, nil
	}

	var ownerRaw string
	if len(parts) > 1 {
		if ownerRaw, err = luaBulkString(parts[1]); err != nil {
			return true, false, err
		}
	}
	if ownerRaw == "" {
		return true, false, nil
	}

	ownerEnv, err := decodeEnvelope([]byte(ownerRaw), owner)
	if err != nil {
		return true, false, err
	}
	ownerOriginal, err := json.Marshal(owner)
	if err != nil {
		return true, false, err
	}
	s.tracked[ref] = &trackedDocument{doc: owner, vector: ownerEnv.ChangeVector, original: ownerOriginal}
	return true, true, nil
}

func (s *redisSession) resolveOwner(ctx context.Context, doc, owner any) (bool, bool, error) {
	ref, err := ownerReference(doc)
	if err != nil {
		return true, false, err
	}
	if ref == "" {
		return true, false, nil
	}
	ownerFound, err := s.Load(ctx, ref, owner)
	return true, ownerFound, err
}

func (s *redisSession) Insert(ctx context.Context, key string, doc any) error {
	if s.closed {
		return ErrSessionClosed
	}
	if key == "" {
		return fmt.Errorf("%w: document key is required", ErrInvalidArgument)
	}
	if _, exists := s.tracked[key]; exists {
		if _, gone := s.deleted[key]; !gone {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
	}

	vector := uuid.NewString()
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	envBytes, err := json.Marshal(documentEnvelope{ChangeVector: vector, Document: payload})
	if err != nil {
		return err
	}

	stored, err := s.rdb.SetNX(ctx, key, envBytes, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !stored {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	delete(s.deleted, key)
	s.tracked[key] = &trackedDocument{doc: doc, vector: vector, original: payload}
	return nil
}

func (s *redisSession) Store(key string, doc any) error {
	if s.closed {
		return ErrSessionClosed
	}
	if key == "" {
		return fmt.Errorf("%w: document key is required", ErrInvalidArgument)
	}

	delete(s.deleted, key)
	if td, ok := s.tracked[key]; ok {
		td.doc = doc
		return nil
	}
	s.tracked[key] = &trackedDocument{doc: doc}
	return nil
}

func (s *redisSession) Delete(key string) {
	if s.closed || key == "" {
		return
	}
	s.deleted[key] = struct{}{}
}

func (s *redisSession) SaveChanges(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}

	type pendingWrite struct {
		key     string
		tracked *trackedDocument
		payload []byte
		isNew   bool
	}

	var writes []pendingWrite
	for key, td := range s.tracked {
		if _, gone := s.deleted[key]; gone {
			continue
		}
		payload, err := json.Marshal(td.doc)
		if err != nil {
			return err
		}
		if td.original != nil && bytes.Equal(payload, td.original) {
			continue
		}
		writes = append(writes, pendingWrite{key: key, tracked: td, payload: payload, isNew: td.vector == ""})
	}

	deletes := make([]string, 0, len(s.deleted))
	for key := range s.deleted {
		deletes = append(deletes, key)
	}

	if len(writes) == 0 && len(deletes) == 0 {
		return nil
	}

	watched := make([]string, 0, len(writes)+len(deletes))
	for _, w := range writes {
		watched = append(watched, w.key)
	}
	watched = append(watched, deletes...)

	vectors := make(map[string]string, len(writes))

	txf := func(tx *redis.Tx) error {
		for _, w := range writes {
			current, err := tx.Get(ctx, w.key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					if !w.isNew {
						return fmt.Errorf("%w: %s was deleted by another writer", ErrConcurrencyConflict, w.key)
					}
					continue
				}
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if w.isNew {
				return fmt.Errorf("%w: %s", ErrDuplicateKey, w.key)
			}
			var env documentEnvelope
			if err := json.Unmarshal(current, &env); err != nil {
				return fmt.Errorf("%w: corrupt envelope at %s", ErrStoreUnavailable, w.key)
			}
			if env.ChangeVector != w.tracked.vector {
				return fmt.Errorf("%w: %s was modified by another writer", ErrConcurrencyConflict, w.key)
			}
		}

		for _, key := range deletes {
			td, ok := s.tracked[key]
			if !ok || td.vector == "" {
				continue
			}
			current, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			var env documentEnvelope
			if err := json.Unmarshal(current, &env); err != nil {
				continue
			}
			if env.ChangeVector != td.vector {
				return fmt.Errorf("%w: %s was modified by another writer", ErrConcurrencyConflict, key)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				vector := uuid.NewString()
				vectors[w.key] = vector
				envBytes, err := json.Marshal(documentEnvelope{ChangeVector: vector, Document: w.payload})
				if err != nil {
					return err
				}
				pipe.Set(ctx, w.key, envBytes, 0)
			}
			if len(deletes) > 0 {
				pipe.Del(ctx, deletes...)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < saveChangesMaxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			// A watched key moved between check and exec. Re-run the vector
			// comparison; a genuine conflict surfaces on the next pass.
			continue
		}
		if err != nil {
			if errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrStoreUnavailable) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, w := range writes {
			w.tracked.vector = vectors[w.key]
			w.tracked.original = w.payload
		}
		for _, key := range deletes {
			delete(s.tracked, key)
		}
		s.deleted = make(map[string]struct{})
		return nil
	}

	return fmt.Errorf("%w: save retries exhausted", ErrConcurrencyConflict)
}

func (s *redisSession) Query(ctx context.Context, keyPrefix string, fn func(raw json.RawMessage) error) error {
	if s.closed {
		return ErrSessionClosed
	}
	if keyPrefix == "" {
		return fmt.Errorf("%w: key prefix is required", ErrInvalidArgument)
	}

	pattern := keyPrefix + "*"
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 512).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		if len(keys) > 0 {
			values, err := s.rdb.MGet(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			for _, value := range values {
				text, ok := value.(string)
				if !ok {
					// Deleted between SCAN and MGET.
					continue
				}
				var env documentEnvelope
				if err := json.Unmarshal([]byte(text), &env); err != nil {
					return fmt.Errorf("%w: corrupt envelope in scan", ErrStoreUnavailable)
				}
				if err := fn(env.Document); err != nil {
					return err
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (s *redisSession) Close() error {
	s.closed = true
	s.tracked = nil
	s.deleted = nil
	return nil
}

func decodeEnvelope(raw []byte, doc any) (documentEnvelope, error) {
	var env documentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: corrupt document envelope", ErrStoreUnavailable)
	}
	if err := json.Unmarshal(env.Document, doc); err != nil {
		return env, fmt.Errorf("%w: corrupt document payload", ErrStoreUnavailable)
	}
	return env, nil
}

func copyDocument(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func ownerReference(doc any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	var ref struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", err
	}
	return ref.UserID, nil
}

func luaBulkString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: unexpected include reply element", ErrStoreUnavailable)
	}
}
