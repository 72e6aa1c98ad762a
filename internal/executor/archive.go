// Package executor implements the pluggable backup executors: a local
// filesystem executor and an S3-backed one. Both share the same
// archive format: a tar stream, optionally zstd-compressed, optionally
// AES-256-GCM encrypted with a PBKDF2-derived key.
package executor

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/pbkdf2"

	"github.com/edvin/backupd/internal/backup"
)

const (
	saltSize   = 16
	pbkdf2Iter = 10000
	keySize    = 32
)

// archiver packs logical partitions ("tables") from a source directory
// into a single archive blob and back. Each top-level entry under the
// source directory is one table.
type archiver struct {
	sourceDir  string
	passphrase string
}

// resolveTables expands the "all" sentinel to every entry in the
// source directory.
func (a *archiver) resolveTables(tables []string) ([]string, error) {
	if len(tables) > 0 && !(len(tables) == 1 && tables[0] == "all") {
		return tables, nil
	}
	entries, err := os.ReadDir(a.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	resolved := make([]string, 0, len(entries))
	for _, e := range entries {
		resolved = append(resolved, e.Name())
	}
	sort.Strings(resolved)
	return resolved, nil
}

// pack archives the given tables and applies compression/encryption
// per opts. It returns the archive blob, the resolved table list and
// the number of files packed.
func (a *archiver) pack(ctx context.Context, tables []string, opts backup.ExecuteOptions) ([]byte, []string, int64, error) {
	resolved, err := a.resolveTables(tables)
	if err != nil {
		return nil, nil, 0, err
	}

	var buf bytes.Buffer
	var files int64
	tw := tar.NewWriter(&buf)
	for _, table := range resolved {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}
		n, err := a.addTable(tw, table)
		if err != nil {
			return nil, nil, 0, err
		}
		files += n
	}
	if err := tw.Close(); err != nil {
		return nil, nil, 0, fmt.Errorf("close archive: %w", err)
	}

	data := buf.Bytes()
	if opts.Compress {
		if data, err = compress(data); err != nil {
			return nil, nil, 0, err
		}
	}
	if opts.Encrypt {
		if data, err = encrypt(data, a.passphrase); err != nil {
			return nil, nil, 0, err
		}
	}
	return data, resolved, files, nil
}

func (a *archiver) addTable(tw *tar.Writer, table string) (int64, error) {
	root := filepath.Join(a.sourceDir, table)
	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("stat table %s: %w", table, err)
	}

	var files int64
	addFile := func(path string, fi os.FileInfo) error {
		rel, err := filepath.Rel(a.sourceDir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		files++
		return nil
	}

	if !info.IsDir() {
		err := addFile(root, info)
		return files, err
	}
	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return addFile(path, fi)
	})
	return files, err
}

// unpack reverses pack into destDir, restoring only the requested
// tables (nil or the "all" sentinel restores everything). It returns
// the distinct tables touched and the number of files written.
func (a *archiver) unpack(data []byte, tables []string, destDir string, opts backup.ExecuteOptions) ([]string, int64, error) {
	var err error
	if opts.Encrypt {
		if data, err = decrypt(data, a.passphrase); err != nil {
			return nil, 0, err
		}
	}
	if opts.Compress {
		if data, err = decompress(data); err != nil {
			return nil, 0, err
		}
	}

	wanted := map[string]bool{}
	restoreAll := len(tables) == 0 || (len(tables) == 1 && tables[0] == "all")
	for _, t := range tables {
		wanted[t] = true
	}

	touched := map[string]bool{}
	var files int64

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read archive: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return nil, 0, fmt.Errorf("archive entry %q escapes destination", hdr.Name)
		}
		table := strings.SplitN(filepath.ToSlash(name), "/", 2)[0]
		if !restoreAll && !wanted[table] {
			continue
		}

		target := filepath.Join(destDir, name)
		if hdr.FileInfo().IsDir() {
			if err := os.MkdirAll(target, hdr.FileInfo().Mode()); err != nil {
				return nil, 0, fmt.Errorf("restore dir %s: %w", name, err)
			}
			touched[table] = true
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, 0, fmt.Errorf("restore parent of %s: %w", name, err)
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, hdr.FileInfo().Mode())
		if err != nil {
			return nil, 0, fmt.Errorf("restore file %s: %w", name, err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("write file %s: %w", name, err)
		}
		f.Close()
		touched[table] = true
		files++
	}

	restored := make([]string, 0, len(touched))
	for t := range touched {
		restored = append(restored, t)
	}
	sort.Strings(restored)
	return restored, files, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flush zstd: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// encrypt seals data with AES-256-GCM. Layout: salt || nonce || ciphertext.
func encrypt(data []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := append(salt, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

func decrypt(data []byte, passphrase string) ([]byte, error) {
	if len(data) < saltSize {
		return nil, fmt.Errorf("encrypted payload too short")
	}
	salt, rest := data[:saltSize], data[saltSize:]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted payload too short")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iter, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

func checksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
