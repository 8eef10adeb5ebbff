package storebackends

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	"fileconv/storage"
)

// Backends without native object metadata (filesystem, SFTP) keep it in a
// JSON sidecar under a hidden tree parallel to the data, so sidecars never
// show up in a prefix listing.
const sidecarDir = ".meta"

func sidecarKey(key string) string {
	return path.Join(sidecarDir, key+".json")
}

func encodeMeta(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	return json.Marshal(meta)
}

func decodeMeta(raw []byte) (map[string]string, error) {
	meta := map[string]string{}
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// listDir is the directory a walk has to start from to see every key with prefix
func listDir(prefix string) string {
	i := strings.LastIndexByte(prefix, '/')
	if i < 0 {
		return ""
	}
	return prefix[:i]
}

func sortObjects(objs []storage.ObjectInfo) {
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })
}
