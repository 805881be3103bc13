package pipeline

import (
	"bytes"
	"crypto/sha256"
	"io"
	"os"
)

// SameContent reports whether two files hold identical bytes. A missing
// file is never the same as anything.
func SameContent(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}

	infoB, err := os.Stat(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	sumA, err := checksum(a)
	if err != nil {
		return false, err
	}

	sumB, err := checksum(b)
	if err != nil {
		return false, err
	}

	return bytes.Equal(sumA, sumB), nil
}

func checksum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
