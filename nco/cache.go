package nco

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/go-crypt/x/blake2b"
)

const vectorKeyPrefix = "vec:"

// VectorCache keeps embeddings in memory and, when a directory is configured,
// in a Badger store so they survive restarts.
type VectorCache struct {
	mu     sync.RWMutex
	mem    map[string][]float32
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// NewVectorCache opens a cache. An empty dir keeps vectors in memory only.
func NewVectorCache(dir string, logger *slog.Logger) (*VectorCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &VectorCache{
		mem:    make(map[string][]float32),
		logger: logger.With("component", "vector-cache"),
	}
	if dir == "" {
		return c, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: c.logger}
	opts.Compression = options.None
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open vector cache: %w", err)
	}
	c.db = db
	return c, nil
}

// Persistent reports whether vectors are written to disk.
func (c *VectorCache) Persistent() bool {
	return c != nil && c.db != nil
}

// Get returns a copy of the cached vector for (modelID, text).
func (c *VectorCache) Get(modelID, text string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(modelID, text)
	c.mu.RLock()
	vec, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return cloneVector(vec), true
	}
	if c.db == nil {
		return nil, false
	}
	var loaded []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(vectorKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var derr error
			loaded, derr = decodeVector(val)
			return derr
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("vector cache read failed", "error", err)
		}
		return nil, false
	}
	c.mu.Lock()
	c.mem[key] = loaded
	c.mu.Unlock()
	return cloneVector(loaded), true
}

// Put stores vec for (modelID, text). Disk failures are logged, not returned.
func (c *VectorCache) Put(modelID, text string, vec []float32) {
	if c == nil {
		return
	}
	key := cacheKey(modelID, text)
	c.mu.Lock()
	c.mem[key] = cloneVector(vec)
	c.mu.Unlock()
	if c.db == nil {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(vectorKeyPrefix+key), encodeVector(vec))
	})
	if err != nil {
		c.logger.Warn("vector cache write failed", "error", err)
	}
}

// Len reports the number of vectors held in memory.
func (c *VectorCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// Close flushes and closes the disk store.
func (c *VectorCache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.mem = make(map[string][]float32)
	c.mu.Unlock()
	if c.db == nil || c.db.IsClosed() {
		return nil
	}
	return c.db.Close()
}

func cacheKey(modelID, text string) string {
	h, _ := blake2b.New(16, nil)
	_, _ = io.WriteString(h, modelID)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

// encodeVector writes a little-endian length prefix followed by the float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, errors.New("cached vector too small")
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]
	if len(data) != length*4 {
		return nil, errors.New("cached vector length mismatch")
	}
	vec := make([]float32, length)
	for i := 0; i < length; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return vec, nil
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
