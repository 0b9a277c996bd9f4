// Package password hashes end-user credentials with argon2id. Hashes are
// stored in the standard $argon2id$ encoded form, so the cost parameters
// travel with each hash: verification always replays the parameters a hash
// was created with, and defaults can change without invalidating stored
// credentials.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("password: malformed hash")

// params is one argon2id cost configuration.
type params struct {
	memoryKiB uint32
	passes    uint32
	threads   uint8
	keyLen    uint32
	saltLen   int
}

// defaultParams follows the RFC 9106 low-memory recommendation, sized for
// interactive logins.
var defaultParams = params{
	memoryKiB: 64 * 1024,
	passes:    3,
	threads:   2,
	keyLen:    32,
	saltLen:   16,
}

// Hash derives an argon2id hash of plain under the default parameters and
// returns it in encoded form.
func Hash(plain string) (string, error) {
	p := defaultParams

	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(plain), salt, p.passes, p.memoryKiB, p.threads, p.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memoryKiB, p.passes, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether plain matches the encoded hash. The comparison is
// constant time; a malformed hash is an error, not a mismatch.
func Verify(plain, encoded string) (bool, error) {
	p, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plain), salt, p.passes, p.memoryKiB, p.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// decode splits an encoded hash back into its parameters, salt, and digest.
func decode(encoded string) (params, []byte, []byte, error) {
	var (
		p       params
		version int
		salt    string
		sum     string
		threads int
	)

	n, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &p.memoryKiB, &p.passes, &threads, &salt)
	if err != nil || n != 5 {
		return params{}, nil, nil, errMalformedHash
	}
	if version != argon2.Version || threads < 1 || threads > 255 {
		return params{}, nil, nil, errMalformedHash
	}
	p.threads = uint8(threads)

	// Sscanf's %s is greedy: the tail still holds "salt$digest".
	for i := 0; i < len(salt); i++ {
		if salt[i] == '$' {
			salt, sum = salt[:i], salt[i+1:]
			break
		}
	}
	if sum == "" {
		return params{}, nil, nil, errMalformedHash
	}

	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return params{}, nil, nil, errMalformedHash
	}
	rawSum, err := base64.RawStdEncoding.DecodeString(sum)
	if err != nil || len(rawSum) == 0 {
		return params{}, nil, nil, errMalformedHash
	}
	return p, rawSalt, rawSum, nil
}
