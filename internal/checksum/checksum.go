package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DocumentID derives the stable id of a document that declares none. The key
// is the source path and resolved title, so an unchanged corpus yields the
// same ids on every run.
func DocumentID(rel, title string) string {
	key := "docdustry:document:" + rel + "\x00" + title
	uid, err := hashid.NewUUID(key, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(false))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	}
	return uid.String()
}
