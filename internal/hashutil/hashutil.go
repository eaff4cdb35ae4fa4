// Package hashutil provides the file-integrity primitives used by the
// format test suites: file hashing and tree comparison.
package hashutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultAlgorithm = "sha256"

func newHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	case "crc32":
		return crc32.NewIEEE(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// FileHash streams the file through the requested hash.
func FileHash(path, algorithm string) (string, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// StringHash hashes in-memory data with the requested algorithm.
func StringHash(data, algorithm string) (string, error) {
	hasher, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FilesEqual reports whether two files have identical content.
func FilesEqual(a, b string) (bool, error) {
	hashA, err := FileHash(a, DefaultAlgorithm)
	if err != nil {
		return false, err
	}
	hashB, err := FileHash(b, DefaultAlgorithm)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

// VerifyFileHash checks a file against an expected digest,
// case-insensitively.
func VerifyFileHash(path, expected, algorithm string) (bool, error) {
	actual, err := FileHash(path, algorithm)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}

// HashTree maps every regular file under dir (by relative path) to its
// digest.
func HashTree(dir, algorithm string) (map[string]string, error) {
	tree := make(map[string]string)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		digest, err := FileHash(path, algorithm)
		if err != nil {
			return err
		}
		tree[rel] = digest
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hash tree %s: %w", dir, err)
	}
	return tree, nil
}

// DirComparison is the outcome of comparing two directory trees.
type DirComparison struct {
	OnlyInA   []string
	OnlyInB   []string
	Different []string
	Identical []string
}

// Equal reports whether the two trees hold exactly the same files with the
// same content.
func (c DirComparison) Equal() bool {
	return len(c.OnlyInA) == 0 && len(c.OnlyInB) == 0 && len(c.Different) == 0
}

// CompareDirs hashes both trees and buckets every relative path.
func CompareDirs(a, b string) (DirComparison, error) {
	var cmp DirComparison
	treeA, err := HashTree(a, DefaultAlgorithm)
	if err != nil {
		return cmp, err
	}
	treeB, err := HashTree(b, DefaultAlgorithm)
	if err != nil {
		return cmp, err
	}
	for rel, hashA := range treeA {
		hashB, ok := treeB[rel]
		switch {
		case !ok:
			cmp.OnlyInA = append(cmp.OnlyInA, rel)
		case hashA != hashB:
			cmp.Different = append(cmp.Different, rel)
		default:
			cmp.Identical = append(cmp.Identical, rel)
		}
	}
	for rel := range treeB {
		if _, ok := treeA[rel]; !ok {
			cmp.OnlyInB = append(cmp.OnlyInB, rel)
		}
	}
	sort.Strings(cmp.OnlyInA)
	sort.Strings(cmp.OnlyInB)
	sort.Strings(cmp.Different)
	sort.Strings(cmp.Identical)
	return cmp, nil
}
