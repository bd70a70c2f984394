package dedup

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

// ContentHash 是文件原始字节的十六进制摘要，只用作集合成员判断。
type ContentHash string

const (
	AlgoMD5    = "md5"
	AlgoSHA256 = "sha256"
	AlgoXXHash = "xxhash"
	AlgoBLAKE3 = "blake3"

	DefaultAlgo = AlgoMD5
)

// chunkSize 固定分块读取，内存占用与文件大小无关。
const chunkSize = 4096

var hashers = map[string]func() hash.Hash{
	AlgoMD5:    md5.New,
	AlgoSHA256: sha256.New,
	AlgoXXHash: func() hash.Hash { return xxhash.New() },
	AlgoBLAKE3: func() hash.Hash { return blake3.New(32, nil) },
}

// Algorithms 返回支持的算法名（字典序）。
func Algorithms() []string {
	out := make([]string, 0, len(hashers))
	for k := range hashers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func ValidAlgo(name string) bool {
	_, ok := hashers[name]
	return ok
}

// HashFile 以 algo 计算 path 的内容摘要。
func HashFile(path, algo string) (ContentHash, error) {
	newHash, ok := hashers[algo]
	if !ok {
		return "", fmt.Errorf("不支持的哈希算法 %q（可选：%v）", algo, Algorithms())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := newHash()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return ContentHash(hex.EncodeToString(h.Sum(nil))), nil
}
