package corpus

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/utils"
	"github.com/crytic/symfuzz/version"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	// fileName is the name of the database file within the corpus directory.
	fileName = "corpus.db"

	// bucketName is the bucket holding every entry.
	bucketName = "reports"

	// defaultFlushThreshold is the number of pending writes after which they are committed to disk.
	defaultFlushThreshold = 25
)

// entry is the stored form of a value. Values written by a different version are treated as missing, since the
// analysis that produced them may have changed.
type entry struct {
	Version string `cbor:"version"`
	Created int64  `cbor:"created"`
	Data    []byte `cbor:"data"`
}

// pendingWrite is an encoded entry waiting to be committed to disk.
type pendingWrite struct {
	key   []byte
	value []byte
}

// Corpus is a persistent cache of analysis results, stored in a bbolt database and encoded as CBOR. Keys are content
// fingerprints, so a result is reused only while its inputs are unchanged. Reads are served from memory first and
// writes are batched. A Corpus is safe for concurrent use.
type Corpus struct {
	// db is the underlying database.
	db *bbolt.DB

	// memCache holds the encoded values read or written during this run.
	memCache map[string][]byte

	// pendingWrites are the writes not yet committed to db.
	pendingWrites []pendingWrite

	// flushThreshold is the number of pending writes that triggers a commit.
	flushThreshold int

	// lock guards memCache and pendingWrites.
	lock sync.Mutex

	// logger describes the Corpus's log object that can be used to log important events
	logger *logging.Logger
}

// NewCorpus opens the corpus stored in the provided directory, creating the directory and database if needed.
func NewCorpus(directory string) (*Corpus, error) {
	if err := utils.MakeDirectory(directory); err != nil {
		return nil, errors.Wrap(err, "failed to create corpus directory")
	}

	db, err := bbolt.Open(filepath.Join(directory, fileName), 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open corpus in '%s'", directory)
	}

	// create default bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}

	return &Corpus{
		db:             db,
		memCache:       make(map[string][]byte),
		pendingWrites:  make([]pendingWrite, 0),
		flushThreshold: defaultFlushThreshold,
		logger:         logging.GlobalLogger.NewSubLogger("module", logging.CORPUS_SERVICE),
	}, nil
}

// Key derives a corpus key from the parts identifying a result.
func Key(parts ...[]byte) (string, error) {
	return utils.HashParts(parts...)
}

// Get decodes the value stored under key into value. It returns false if there is no usable entry for the key.
func (c *Corpus) Get(key string, value any) (bool, error) {
	c.lock.Lock()
	data, ok := c.memCache[key]
	c.lock.Unlock()

	if !ok {
		err := c.db.View(func(tx *bbolt.Tx) error {
			stored := tx.Bucket([]byte(bucketName)).Get([]byte(key))
			if stored != nil {
				// bbolt values are only valid during the transaction
				data = append([]byte(nil), stored...)
			}
			return nil
		})
		if err != nil {
			return false, errors.Wrap(err, "could not read corpus entry")
		}
		if data == nil {
			return false, nil
		}
	}

	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Ignoring undecodable corpus entry ", key, ": ", err.Error())
		return false, nil
	}
	if e.Version != version.Version {
		c.logger.Debug("Ignoring corpus entry ", key, " written by version ", e.Version)
		return false, nil
	}
	if err := cbor.Unmarshal(e.Data, value); err != nil {
		c.logger.Warn("Ignoring undecodable corpus entry ", key, ": ", err.Error())
		return false, nil
	}

	c.lock.Lock()
	c.memCache[key] = data
	c.lock.Unlock()
	return true, nil
}

// Put stores value under key. The write is committed to disk once enough writes are pending, or on Flush or Close.
func (c *Corpus) Put(key string, value any) error {
	encoded, err := cbor.Marshal(value, cbor.EncOptions{})
	if err != nil {
		return errors.Wrap(err, "could not encode corpus entry")
	}
	data, err := cbor.Marshal(entry{
		Version: version.Version,
		Created: time.Now().Unix(),
		Data:    encoded,
	}, cbor.EncOptions{})
	if err != nil {
		return errors.Wrap(err, "could not encode corpus entry")
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	c.memCache[key] = data
	c.pendingWrites = append(c.pendingWrites, pendingWrite{key: []byte(key), value: data})
	if len(c.pendingWrites) >= c.flushThreshold {
		return c.flushWrites()
	}
	return nil
}

// Flush commits every pending write to disk.
func (c *Corpus) Flush() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.flushWrites()
}

// flushWrites commits pending writes. The lock must be held by the caller.
func (c *Corpus) flushWrites() error {
	if len(c.pendingWrites) == 0 {
		return nil
	}
	err := c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		for _, pw := range c.pendingWrites {
			if err := bucket.Put(pw.key, pw.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "could not write corpus entries")
	}
	c.pendingWrites = c.pendingWrites[:0]
	return nil
}

// EntryCount returns the number of entries committed to disk.
func (c *Corpus) EntryCount() (int, error) {
	count := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return count, errors.WithStack(err)
}

// Close flushes pending writes and closes the database.
func (c *Corpus) Close() error {
	flushErr := c.Flush()
	closeErr := c.db.Close()
	if flushErr != nil {
		return flushErr
	}
	return errors.WithStack(closeErr)
}

// Remove deletes the corpus stored in a directory.
func Remove(directory string) error {
	err := os.Remove(filepath.Join(directory, fileName))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}
