package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex SHA-256 of data. The pipeline hashes the serialized
// model with it; [FileCache] hashes keys into file names.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// artifactKey returns "artifact:<sha256>" over the model hash and the
// render options that change the artifact bytes.
func artifactKey(modelHash string, opts ArtifactKeyOpts) string {
	data, _ := json.Marshal(struct {
		Model string          `json:"model"`
		Opts  ArtifactKeyOpts `json:"opts"`
	}{modelHash, opts})
	return "artifact:" + Hash(data)
}
