// Package cachestore persists the dependency graph and per-file content
// hashes between runs, so that an unchanged workspace costs one stat and one
// hash per file instead of a full re-parse.
//
// A schema version and config hash gate validity, and writes land via a
// sibling temp file renamed into place so a crash mid-write can never leave
// a half-written cache behind. The wire format is a fixed binary layout:
// the cache is read on every invocation, and the binary form avoids a
// JSON-unmarshal pass over potentially tens of thousands of node records.
package cachestore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scopetest-dev/scopetest/internal/model"
)

// SchemaVersion is bumped whenever the binary layout below changes
// incompatibly. A mismatched version forces a full rebuild rather than
// attempting to interpret bytes written by an older layout.
const SchemaVersion uint32 = 1

// relPath is where the cache lives under the project root.
const relPath = ".scopetest/cache.bin"

// lockRelPath is the advisory lock file guarding concurrent cache writers.
const lockRelPath = ".scopetest/cache.lock"

// Cache is the persisted snapshot of a prior run's graph.
type Cache struct {
	SchemaVersion uint32
	ConfigHash    uint64
	Nodes         []model.FileNode
}

// classFlags packs FileClass, IsBarrel, and ParseStatus into a single byte.
const (
	flagTest      = 1 << 0
	flagBarrel    = 1 << 1
	parseStatusOk = 0 << 2
	parseStatusSE = 1 << 2
	parseStatusUS = 2 << 2
)

// Path returns the cache file path under root, honoring the
// SCOPETEST_CACHE_DIR override.
func Path(root string) string {
	if dir := os.Getenv("SCOPETEST_CACHE_DIR"); dir != "" {
		return filepath.Join(dir, "cache.bin")
	}
	return filepath.Join(root, relPath)
}

// LockPath returns the advisory lock file path under root.
func LockPath(root string) string {
	if dir := os.Getenv("SCOPETEST_CACHE_DIR"); dir != "" {
		return filepath.Join(dir, "cache.lock")
	}
	return filepath.Join(root, lockRelPath)
}

// Load reads and decodes the cache at path. Any error — missing file,
// truncated data, tail-checksum mismatch — is treated as a cold cache and
// reported as (nil, false): callers fall back to a full rebuild rather than
// risk a wrong answer from a partially-written or corrupt file.
func Load(path string) (*Cache, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	c, err := decode(data)
	if err != nil {
		return nil, false
	}
	return c, true
}

// IsValid reports whether the cache can be reused as-is for the given
// config hash: the schema version must match exactly, and the config hash
// (which folds in test/ignore patterns, extensions, and tsconfig override)
// must be identical; any difference forces a full rebuild.
func (c *Cache) IsValid(configHash uint64) bool {
	return c != nil && c.SchemaVersion == SchemaVersion && c.ConfigHash == configHash
}

// Save encodes c and writes it to path atomically: a sibling temp file is
// written and fsynced, then renamed over the destination, so a reader never
// observes a partial write.
func Save(path string, c *Cache) error {
	c.SchemaVersion = SchemaVersion
	data := encode(c)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file into place: %w", err)
	}
	return nil
}

// encode serializes c to the binary cache layout: schema version
// (u32), config hash (u64), node count (u32), then per node: path length
// (u16) + path bytes, content hash (u64), class (u8, packed with the barrel
// flag and parse status), edge count (u16), then per edge: kind (u8),
// status (u8), target-or-specifier length (u16) + bytes, and span (u32,
// here the 1-based source line recorded at extraction time). The final 8
// bytes are an xxhash checksum of everything before them, letting Load
// detect a partial write.
func encode(c *Cache) []byte {
	var buf bytes.Buffer

	writeU32(&buf, c.SchemaVersion)
	writeU64(&buf, c.ConfigHash)
	writeU32(&buf, uint32(len(c.Nodes)))

	for _, n := range c.Nodes {
		writeU16(&buf, uint16(len(n.Path)))
		buf.WriteString(n.Path)
		writeU64(&buf, n.ContentHash)
		buf.WriteByte(encodeClass(n))
		writeU16(&buf, uint16(len(n.Edges)))
		for _, e := range n.Edges {
			buf.WriteByte(encodeKind(e.Kind))
			buf.WriteByte(encodeStatus(e.Status))
			payload := e.Target
			if e.Status == model.StatusUnresolved {
				payload = e.Specifier
			}
			writeU16(&buf, uint16(len(payload)))
			buf.WriteString(payload)
			writeU32(&buf, uint32(e.Line))
		}
	}

	checksum := ContentHash(buf.Bytes())
	writeU64(&buf, checksum)

	return buf.Bytes()
}

func decode(data []byte) (*Cache, error) {
	if len(data) < 4+8+4+8 {
		return nil, fmt.Errorf("cache file too short")
	}

	body, tail := data[:len(data)-8], data[len(data)-8:]
	wantChecksum := binary.BigEndian.Uint64(tail)
	if ContentHash(body) != wantChecksum {
		return nil, fmt.Errorf("cache checksum mismatch")
	}

	r := bytes.NewReader(body)
	c := &Cache{}

	var err error
	if c.SchemaVersion, err = readU32(r); err != nil {
		return nil, err
	}
	if c.ConfigHash, err = readU64(r); err != nil {
		return nil, err
	}
	nodeCount, err := readU32(r)
	if err != nil {
		return nil, err
	}

	c.Nodes = make([]model.FileNode, 0, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		node, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		c.Nodes = append(c.Nodes, node)
	}

	return c, nil
}

func decodeNode(r *bytes.Reader) (model.FileNode, error) {
	var node model.FileNode

	pathLen, err := readU16(r)
	if err != nil {
		return node, err
	}
	pathBytes := make([]byte, pathLen)
	if _, err := r.Read(pathBytes); err != nil {
		return node, err
	}
	node.Path = string(pathBytes)

	if node.ContentHash, err = readU64(r); err != nil {
		return node, err
	}
	classByte, err := r.ReadByte()
	if err != nil {
		return node, err
	}
	decodeClass(classByte, &node)

	edgeCount, err := readU16(r)
	if err != nil {
		return node, err
	}
	node.Edges = make([]model.ImportEdge, 0, edgeCount)
	for i := uint16(0); i < edgeCount; i++ {
		edge, err := decodeEdge(r, node.Path)
		if err != nil {
			return node, err
		}
		node.Edges = append(node.Edges, edge)
	}

	return node, nil
}

func decodeEdge(r *bytes.Reader, importer string) (model.ImportEdge, error) {
	var edge model.ImportEdge
	edge.Importer = importer

	kindByte, err := r.ReadByte()
	if err != nil {
		return edge, err
	}
	edge.Kind = decodeKind(kindByte)

	statusByte, err := r.ReadByte()
	if err != nil {
		return edge, err
	}
	edge.Status = decodeStatus(statusByte)

	payloadLen, err := readU16(r)
	if err != nil {
		return edge, err
	}
	payload := make([]byte, payloadLen)
	if _, err := r.Read(payload); err != nil {
		return edge, err
	}
	if edge.Status == model.StatusUnresolved {
		edge.Specifier = string(payload)
	} else {
		edge.Target = string(payload)
	}

	line, err := readU32(r)
	if err != nil {
		return edge, err
	}
	edge.Line = int(line)

	return edge, nil
}

func encodeClass(n model.FileNode) byte {
	var b byte
	if n.Class == model.ClassTest {
		b |= flagTest
	}
	if n.IsBarrel {
		b |= flagBarrel
	}
	switch n.ParseStatus {
	case model.ParseSyntaxError:
		b |= parseStatusSE
	case model.ParseUnsupported:
		b |= parseStatusUS
	}
	return b
}

func decodeClass(b byte, node *model.FileNode) {
	if b&flagTest != 0 {
		node.Class = model.ClassTest
	} else {
		node.Class = model.ClassSource
	}
	node.IsBarrel = b&flagBarrel != 0
	switch (b >> 2) & 0x3 {
	case 1:
		node.ParseStatus = model.ParseSyntaxError
	case 2:
		node.ParseStatus = model.ParseUnsupported
	default:
		node.ParseStatus = model.ParseOk
	}
}

var edgeKinds = []model.ImportKind{
	model.KindStatic, model.KindDynamic, model.KindRequire,
	model.KindReExportAll, model.KindReExportNamed, model.KindTypeOnly,
}

func encodeKind(k model.ImportKind) byte {
	for i, v := range edgeKinds {
		if v == k {
			return byte(i)
		}
	}
	return 0
}

func decodeKind(b byte) model.ImportKind {
	if int(b) < len(edgeKinds) {
		return edgeKinds[b]
	}
	return model.KindStatic
}

var edgeStatuses = []model.EdgeStatus{model.StatusResolved, model.StatusExternal, model.StatusUnresolved}

func encodeStatus(s model.EdgeStatus) byte {
	for i, v := range edgeStatuses {
		if v == s {
			return byte(i)
		}
	}
	return 2
}

func decodeStatus(b byte) model.EdgeStatus {
	if int(b) < len(edgeStatuses) {
		return edgeStatuses[b]
	}
	return model.StatusUnresolved
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var tmp [2]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(tmp[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}
