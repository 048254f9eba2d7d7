// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/bundlerepo/bundlerepo/pkg/descriptor"
)

// NameRepository takes the identifier from the archive file name, the part
// before the last underscore, and reads only the version and fix markers
// from the descriptor. It keeps no persistent cache and is meant for early
// bootstrap, before a work area exists.
type NameRepository struct {
	*localRepository
}

var _ Repository = (*NameRepository)(nil)

// NewNameRepository returns a name-convention repository for installDir.
func NewNameRepository(name, installDir string, opts Options) *NameRepository {
	return &NameRepository{localRepository: newLocalRepository(name, installDir, opts, deriveFromName)}
}

// IdentifierFromFileName returns the prefix of fileName before its last
// underscore.
func IdentifierFromFileName(fileName string) (string, bool) {
	i := strings.LastIndexByte(fileName, '_')
	if i <= 0 {
		return "", false
	}
	return fileName[:i], true
}

func deriveFromName(path, root string, info fs.FileInfo) (Record, error) {
	id, ok := IdentifierFromFileName(info.Name())
	if !ok {
		return Record{}, errSkip
	}
	m, err := descriptor.ReadManifest(path)
	if err != nil {
		return Record{}, err
	}
	v, err := descriptor.VersionOf(m)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return Record{
		Identifier: id,
		Version:    v,
		Patch:      descriptor.IsPatch(m),
		SearchRoot: root,
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// Dispose releases the candidate set.
func (r *NameRepository) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.disposeLocked()
}
